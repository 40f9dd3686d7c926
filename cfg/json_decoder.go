package cfg

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// JsonDecoder JSON 格式解码器，逐个 token 读取以保留对象键顺序
type JsonDecoder struct{}

// Decode 将 JSON 数据解码为有序文档
func (d *JsonDecoder) Decode(data []byte) (*Node, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err == io.EOF {
		return NewNode(), nil
	}
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("json document root must be an object")
	}

	return d.readObject(decoder)
}

func (d *JsonDecoder) readObject(decoder *json.Decoder) (*Node, error) {
	node := NewNode()
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := token.(string)
		if !ok {
			return nil, errors.Errorf("unexpected json token %v", token)
		}
		value, err := d.readValue(decoder)
		if err != nil {
			return nil, err
		}
		node.Set(key, value)
	}
	// 消费结尾的 '}'
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return node, nil
}

func (d *JsonDecoder) readArray(decoder *json.Decoder) ([]any, error) {
	items := []any{}
	for decoder.More() {
		value, err := d.readValue(decoder)
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return items, nil
}

func (d *JsonDecoder) readValue(decoder *json.Decoder) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	switch v := token.(type) {
	case json.Delim:
		switch v {
		case '{':
			return d.readObject(decoder)
		case '[':
			return d.readArray(decoder)
		default:
			return nil, errors.Errorf("unexpected json delimiter %v", v)
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return v.Float64()
	default:
		return v, nil
	}
}
