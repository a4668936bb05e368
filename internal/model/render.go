package model

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strconv"
)

// AsJSON renders the model as a JSON object in field declaration order.
// Lists render as arrays and booleans as true/false literals.
func (b *Base) AsJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, f := range b.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(b.values[i])
		if err != nil {
			return nil, err
		}

		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// AsXML renders the model as an XML element named after the schema.
// Each list value becomes a nested <item> element.
func (b *Base) AsXML() ([]byte, error) {
	var buf bytes.Buffer

	enc := xml.NewEncoder(&buf)
	root := xml.StartElement{Name: xml.Name{Local: b.schema.name}}

	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	for i, f := range b.schema.fields {
		start := xml.StartElement{Name: xml.Name{Local: f.Name}}

		var err error

		switch f.Type {
		case TypeStringList:
			err = encodeList(enc, start, b.values[i].([]string))
		case TypeBoolean:
			err = enc.EncodeElement(strconv.FormatBool(b.values[i].(bool)), start)
		default:
			err = enc.EncodeElement(b.values[i], start)
		}

		if err != nil {
			return nil, err
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}

	if err := enc.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encodeList(enc *xml.Encoder, start xml.StartElement, items []string) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	item := xml.StartElement{Name: xml.Name{Local: "item"}}
	for _, v := range items {
		if err := enc.EncodeElement(v, item); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}
