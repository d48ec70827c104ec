package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const maxReportedViolations = 5

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return !IsEmpty(fl.Field().String())
		})
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// LoadFile reads a product array from path and validates every record.
func LoadFile(path string) ([]Product, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	products, err := Decode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return products, nil
}

// Decode parses a JSON array of products (a leading UTF-8 BOM is tolerated).
func Decode(b []byte) ([]Product, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	var products []Product
	if err := json.Unmarshal(b, &products); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	if err := Validate(products); err != nil {
		return nil, err
	}
	return products, nil
}

// Validate checks every record against the schema tags on Product.
func Validate(products []Product) error {
	v := recordValidator()
	var problems []string
	total := 0
	for i := range products {
		err := v.Struct(&products[i])
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrapf(err, "validate record %d", i)
		}
		for _, fe := range verrs {
			total++
			if len(problems) < maxReportedViolations {
				problems = append(problems, fmt.Sprintf("record %d (%s): field %s failed %s", i, products[i].Label(), fe.Field(), fe.Tag()))
			}
		}
	}
	if total == 0 {
		return nil
	}
	msg := strings.Join(problems, "; ")
	if total > len(problems) {
		msg += fmt.Sprintf("; and %d more", total-len(problems))
	}
	return errors.New("invalid products: " + msg)
}

// Encode renders products as an indented JSON array.
func Encode(products []Product) ([]byte, error) {
	if products == nil {
		products = []Product{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(products); err != nil {
		return nil, errors.Wrap(err, "encode products")
	}
	return buf.Bytes(), nil
}

// WriteFile replaces path with the encoded products. The data goes to a temporary
// sibling first so a failed write never leaves a truncated file behind.
func WriteFile(path string, products []Product) error {
	b, err := Encode(products)
	if err != nil {
		return err
	}
	return writeAtomic(path, b)
}

func writeAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
