package entity

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ValueKind 列值的种类，用于格式化与主键编码
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindTime
	KindOther
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "time"
	default:
		return "other"
	}
}

var timeType = reflect.TypeOf(time.Time{})

// KindOf 返回值的种类，指针会被解引用，自定义类型按底层类型归类
func KindOf(v any) ValueKind {
	rv := indirect(v)
	if !rv.IsValid() {
		return KindNull
	}
	if rv.Type() == timeType {
		return KindTime
	}
	switch rv.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return KindUint
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return KindBytes
		}
	}
	return KindOther
}

func indirect(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// FormatValue 格式化用于展示的值
// bool 输出 TRUE/FALSE，字符串加双引号，nil 输出 NULL，数字原样输出
func FormatValue(v any) string {
	rv := indirect(v)
	switch KindOf(v) {
	case KindNull:
		return "NULL"
	case KindBool:
		if rv.Bool() {
			return "TRUE"
		}
		return "FALSE"
	case KindInt:
		return strconv.FormatInt(rv.Int(), 10)
	case KindUint:
		return strconv.FormatUint(rv.Uint(), 10)
	case KindFloat:
		return strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits())
	case KindString:
		return `"` + rv.String() + `"`
	case KindBytes:
		return `"` + string(rv.Bytes()) + `"`
	case KindTime:
		return `"` + rv.Interface().(time.Time).Format(time.DateTime) + `"`
	default:
		return fmt.Sprint(rv.Interface())
	}
}

// FormatValues 逐个格式化并用逗号连接，用于日志中的参数列表
func FormatValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, ", ")
}

// EncodeKey 将主键值编码为可比较的字符串
// 整数与整数值的浮点数编码相同，因此 int64(1)、uint8(1)、1.0 视为同一个主键
func EncodeKey(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = encodeValue(v)
	}
	return strings.Join(parts, ",")
}

func encodeValue(v any) string {
	rv := indirect(v)
	switch KindOf(v) {
	case KindNull:
		return "n"
	case KindBool:
		return "b:" + strconv.FormatBool(rv.Bool())
	case KindInt:
		return "i:" + strconv.FormatInt(rv.Int(), 10)
	case KindUint:
		return "i:" + strconv.FormatUint(rv.Uint(), 10)
	case KindFloat:
		f := rv.Float()
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return "i:" + strconv.FormatInt(int64(f), 10)
		}
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	case KindString:
		return "s:" + strconv.Quote(rv.String())
	case KindBytes:
		return "s:" + strconv.Quote(string(rv.Bytes()))
	case KindTime:
		return "t:" + rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano)
	default:
		return "o:" + strconv.Quote(fmt.Sprintf("%#v", rv.Interface()))
	}
}
