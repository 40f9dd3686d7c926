package cfg

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ConvertTo 将节点数据绑定到结构体、map 或者 slice
// 结构体字段通过 cfg tag 匹配键名，没有 tag 时使用首字母小写的字段名
func (n *Node) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return convertValue(n, rv.Elem())
}

func convertValue(src any, dst reflect.Value) error {
	if src == nil {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	if node, ok := src.(*Node); ok {
		switch dst.Kind() {
		case reflect.Struct:
			return convertToStruct(node, dst)
		case reflect.Map:
			return convertToMap(node, dst)
		case reflect.Interface:
			dst.Set(reflect.ValueOf(node))
			return nil
		default:
			return errors.Errorf("cannot convert mapping to %v", dst.Type())
		}
	}

	sv := reflect.ValueOf(src)
	if dst.Type() == reflect.TypeOf(time.Duration(0)) {
		return convertToDuration(src, dst)
	}
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(fmt.Sprint(src))
		return nil
	case reflect.Bool:
		b, err := strconv.ParseBool(fmt.Sprint(src))
		if err != nil {
			return errors.Errorf("cannot convert %v to bool", src)
		}
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(fmt.Sprint(src), 10, dst.Type().Bits())
		if err != nil {
			return errors.Errorf("cannot convert %v to %v", src, dst.Type())
		}
		dst.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(fmt.Sprint(src), 10, dst.Type().Bits())
		if err != nil {
			return errors.Errorf("cannot convert %v to %v", src, dst.Type())
		}
		dst.SetUint(u)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(fmt.Sprint(src), dst.Type().Bits())
		if err != nil {
			return errors.Errorf("cannot convert %v to %v", src, dst.Type())
		}
		dst.SetFloat(f)
		return nil
	case reflect.Slice:
		return convertToSlice(src, dst)
	case reflect.Interface:
		if dst.Type().NumMethod() == 0 {
			dst.Set(sv)
			return nil
		}
	}

	if sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return errors.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
}

func convertToDuration(src any, dst reflect.Value) error {
	switch v := src.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", v)
		}
		dst.SetInt(int64(d))
	case int, int64:
		dst.SetInt(reflect.ValueOf(v).Int())
	case float64:
		dst.SetInt(int64(v * float64(time.Second)))
	default:
		return errors.Errorf("cannot convert %T to time.Duration", src)
	}
	return nil
}

func convertToSlice(src any, dst reflect.Value) error {
	var items []any
	switch v := src.(type) {
	case []any:
		items = v
	case string:
		// 逗号分隔的列表
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	default:
		items = []any{v}
	}

	slice := reflect.MakeSlice(dst.Type(), len(items), len(items))
	for i, item := range items {
		if err := convertValue(item, slice.Index(i)); err != nil {
			return errors.WithMessagef(err, "index %d", i)
		}
	}
	dst.Set(slice)
	return nil
}

func convertToMap(src *Node, dst reflect.Value) error {
	if dst.Type().Key().Kind() != reflect.String {
		return errors.Errorf("map key must be string, got %v", dst.Type().Key())
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}
	for _, key := range src.keys {
		value := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(src.values[key], value); err != nil {
			return errors.WithMessagef(err, "key %s", key)
		}
		dst.SetMapIndex(reflect.ValueOf(key).Convert(dst.Type().Key()), value)
	}
	return nil
}

func convertToStruct(src *Node, dst reflect.Value) error {
	rt := dst.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := fieldKey(field)
		if name == "-" {
			continue
		}
		value, ok := src.Get(name)
		if !ok {
			continue
		}
		if err := convertValue(value, dst.Field(i)); err != nil {
			return errors.WithMessagef(err, "field %s", name)
		}
	}
	return nil
}

func fieldKey(field reflect.StructField) string {
	if tag := field.Tag.Get("cfg"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(field.Name[:1]) + field.Name[1:]
}
