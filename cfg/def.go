package cfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SetDefaults 根据 def tag 为零值字段填充默认值，已有值不会被覆盖
// 嵌套结构体递归处理，值为 nil 的结构体指针保持 nil
func SetDefaults(object any) error {
	if object == nil {
		return errors.New("object cannot be nil")
	}
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		value := rv.Field(i)
		if !value.CanSet() {
			continue
		}

		if isNestedStruct(value) {
			if err := setDefaults(value); err != nil {
				return errors.WithMessagef(err, "field %s", field.Name)
			}
			continue
		}

		tag, ok := field.Tag.Lookup("def")
		if !ok || !value.IsZero() {
			continue
		}
		if value.Kind() == reflect.Ptr {
			value.Set(reflect.New(value.Type().Elem()))
			value = value.Elem()
		}
		if err := setDefaultValue(value, tag); err != nil {
			return errors.WithMessagef(err, "field %s", field.Name)
		}
	}
	return nil
}

func isNestedStruct(rv reflect.Value) bool {
	t := rv.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != reflect.TypeOf(time.Time{})
}

func setDefaultValue(rv reflect.Value, def string) error {
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(def)
	case reflect.Bool:
		v, err := strconv.ParseBool(def)
		if err != nil {
			return errors.Wrapf(err, "invalid bool default %q", def)
		}
		rv.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(def)
			if err != nil {
				return errors.Wrapf(err, "invalid duration default %q", def)
			}
			rv.SetInt(int64(d))
			return nil
		}
		v, err := strconv.ParseInt(def, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid int default %q", def)
		}
		rv.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(def, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid uint default %q", def)
		}
		rv.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(def, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid float default %q", def)
		}
		rv.SetFloat(v)
	case reflect.Slice:
		if def == "" {
			return nil
		}
		parts := strings.Split(def, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setDefaultValue(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return err
			}
		}
		rv.Set(slice)
	case reflect.Struct:
		if rv.Type() != reflect.TypeOf(time.Time{}) {
			return errors.Errorf("unsupported default type %v", rv.Type())
		}
		t, err := time.Parse(time.RFC3339, def)
		if err != nil {
			return errors.Wrapf(err, "invalid time default %q", def)
		}
		rv.Set(reflect.ValueOf(t))
	default:
		return errors.Errorf("unsupported default type %v", rv.Type())
	}
	return nil
}
