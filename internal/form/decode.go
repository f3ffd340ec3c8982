package form

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	formdec "github.com/go-playground/form/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/domain"
)

var (
	errNotNumber = errors.New("not a number")
	errNotWhole  = errors.New("not a whole number")
)

var decoder = newDecoder()

func newDecoder() *formdec.Decoder {
	d := formdec.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		s := strings.TrimSpace(vals[0])
		if s == "" {
			return decimal.Zero, nil
		}
		n, err := decimal.NewFromString(s)
		if err != nil {
			return nil, errNotNumber
		}
		return n, nil
	}, decimal.Decimal{})
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		n, err := parseWhole(vals[0], strconv.IntSize)
		return int(n), err
	}, int(0))
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return parseWhole(vals[0], 64)
	}, int64(0))
	return d
}

func parseWhole(s string, bits int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return 0, errNotWhole
	}
	return n, nil
}

// Decode copies submitted values into the struct pointed to by v, matching
// fields by their `form` tag. Numbers are trimmed before parsing and a blank
// number decodes as zero. A value that does not parse is reported as a field
// error under the op.
func Decode(op string, values url.Values, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return domain.Internal(nil, op, "form target must be a struct pointer")
	}

	err := decoder.Decode(v, values)
	if err == nil {
		return nil
	}
	var derrs formdec.DecodeErrors
	if !errors.As(err, &derrs) {
		return domain.Internal(err, op, "failed to decode form")
	}

	var verr error
	for field, ferr := range derrs {
		switch {
		case errors.Is(ferr, errNotNumber):
			verr = domain.AddFieldError(verr, field, "Enter a number.")
		case errors.Is(ferr, errNotWhole):
			verr = domain.AddFieldError(verr, field, "Enter a whole number.")
		default:
			verr = domain.AddFieldError(verr, field, "Enter a valid value.")
		}
	}
	if ve, ok := verr.(*domain.ValidationError); ok {
		ve.Op = op
		return ve
	}
	return nil
}
