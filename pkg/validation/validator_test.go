package validation

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strongpwd"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

func TestStrongPassword(t *testing.T) {
	v := newValidator()
	tests := []struct {
		pwd string
		ok  bool
	}{
		{"Secret12!", true},
		{"abcdef1!", true},
		{"short1!", false},
		{"NoDigits!!", false},
		{"12345678!", false},
		{"NoSpecial1", false},
		{"with space1", false},
	}
	for _, tt := range tests {
		t.Run(tt.pwd, func(t *testing.T) {
			err := v.Struct(signup{Name: "Ana", Email: "ana@x.com", Password: tt.pwd})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestToDetails(t *testing.T) {
	v := newValidator()
	err := v.Struct(signup{Email: "nope", Password: "weak"})
	require.Error(t, err)

	d := ToDetails(err)
	assert.Equal(t, "is required", d["name"])
	assert.Equal(t, "must be a valid email", d["email"])
	assert.Contains(t, d["password"], "at least 8 characters")

	var out map[string]any
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(json.Unmarshal([]byte("{"), &out)))
	assert.Nil(t, ToDetails(nil))
}
