package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/domain"
)

type signup struct {
	Name     string `form:"name" validate:"required,min=2"`
	Email    string `form:"email" validate:"omitempty,email"`
	Phone    string `form:"phone" validate:"required,number,min=10,max=11"`
	Password string `form:"password" validate:"required,min=8"`
	Confirm  string `form:"confirm" validate:"eqfield=Password"`
	Rating   int    `form:"rating" validate:"gte=1,lte=5"`
	Role     string `form:"role" validate:"omitempty,oneof=a b"`
}

func TestValidate(t *testing.T) {
	ok := signup{Name: "Lan", Phone: "0912345678", Password: "secretpw", Confirm: "secretpw", Rating: 5}
	require.NoError(t, Validate("test", ok))

	bad := signup{Name: "L", Email: "nope", Phone: "09-123", Password: "secretpw", Confirm: "other", Rating: 9, Role: "c"}
	err := Validate("test", bad)
	fields := domain.GetValidationFields(err)
	require.NotNil(t, fields)

	assert.Equal(t, "Must be at least 2 characters.", fields["name"])
	assert.Equal(t, "Enter a valid email address.", fields["email"])
	assert.Equal(t, "Use digits only.", fields["phone"])
	assert.Equal(t, "Does not match.", fields["confirm"])
	assert.Equal(t, "Must be 5 or less.", fields["rating"])
	assert.Equal(t, "Choose one of: a, b.", fields["role"])
	assert.Equal(t, "test", domain.ErrorOp(err))
}

func TestValidate_PhoneLength(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"0912345678", true},
		{"09123456789", true},
		{"091234567", false},
		{"091234567890", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			s := signup{Name: "Lan", Phone: tt.phone, Password: "secretpw", Confirm: "secretpw", Rating: 1}
			err := Validate("test", s)
			assert.Equal(t, tt.ok, err == nil, "err = %v", err)
		})
	}
}

func TestTrim(t *testing.T) {
	s := signup{Name: "  Lan ", Email: " a@b.vn"}
	Trim(&s)
	assert.Equal(t, "Lan", s.Name)
	assert.Equal(t, "a@b.vn", s.Email)

	Trim(s) // non-pointer is ignored
}
