package form

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/domain"
)

type productForm struct {
	Name     string          `form:"name"`
	Price    decimal.Decimal `form:"price"`
	Category int64           `form:"category_id"`
	Stock    int             `form:"stock"`
	Active   bool            `form:"is_active"`
	Ignored  string          `form:"-"`
}

func TestDecode(t *testing.T) {
	values := url.Values{
		"name":        {" Linen shirt "},
		"price":       {" 450000 "},
		"category_id": {"3 "},
		"stock":       {""},
		"is_active":   {"on"},
		"Ignored":     {"x"},
	}

	var f productForm
	require.NoError(t, Decode("test", values, &f))

	assert.Equal(t, " Linen shirt ", f.Name)
	assert.True(t, decimal.NewFromInt(450000).Equal(f.Price))
	assert.Equal(t, int64(3), f.Category)
	assert.Equal(t, 0, f.Stock)
	assert.True(t, f.Active)
	assert.Empty(t, f.Ignored)
}

func TestDecode_BadNumbers(t *testing.T) {
	values := url.Values{
		"price":       {"abc"},
		"category_id": {"1.5"},
	}

	var f productForm
	err := Decode("admin.product", values, &f)
	require.Error(t, err)

	fields := domain.GetValidationFields(err)
	assert.Equal(t, "Enter a number.", fields["price"])
	assert.Equal(t, "Enter a whole number.", fields["category_id"])
	assert.Equal(t, "admin.product", domain.ErrorOp(err))
}

func TestDecode_RejectsNonPointer(t *testing.T) {
	err := Decode("test", url.Values{}, productForm{})
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
