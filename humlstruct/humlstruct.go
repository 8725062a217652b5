// Package humlstruct adapts Go structs, maps, and slices to and from HUML
// documents via reflection, the way encoding/json adapts to JSON. It is
// kept separate from package huml: the core package never imports
// reflect, and everything here is built strictly on huml's public
// Parse/Serialize/Value/Dict surface.
//
// Struct fields are named by their `huml` tag ("-" to skip, ",omitempty"
// to drop zero values on Marshal) and fall back to the Go field name.
package humlstruct

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/huml-go/huml"
)

// Marshal returns the canonical HUML encoding of v, prefixed with a
// "%HUML v0.1.0" version header.
func Marshal(v any) ([]byte, error) {
	val, err := toValue(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return huml.Serialize(&huml.Document{Version: "0.1.0", Root: val})
}

// Unmarshal parses HUML data and stores the result in the value pointed
// to by v, which must be a non-nil pointer.
func Unmarshal(data []byte, v any) error {
	doc, err := huml.Parse(data)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("humlstruct: Unmarshal requires a non-nil pointer, got %T", v)
	}
	return fromValue(doc.Root, rv.Elem())
}

// fieldInfo describes one exported struct field after tag parsing.
type fieldInfo struct {
	name      string
	index     int
	omitempty bool
}

func structFields(t reflect.Type) []fieldInfo {
	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("huml")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		fields = append(fields, fieldInfo{
			name:      name,
			index:     i,
			omitempty: opts == "omitempty",
		})
	}
	return fields
}

// toValue converts a reflected Go value into a huml.Value, following
// pointers and interfaces and guarding against circular structures.
func toValue(v reflect.Value) (huml.Value, error) {
	v, err := indirect(v)
	if err != nil {
		return huml.Value{}, err
	}
	if !v.IsValid() {
		return huml.Null(), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return huml.Bool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return huml.Int(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return huml.Int(int64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return huml.Float(v.Float()), nil
	case reflect.String:
		return huml.String(v.String()), nil
	case reflect.Slice, reflect.Array:
		return sliceToValue(v)
	case reflect.Map:
		return mapToValue(v)
	case reflect.Struct:
		return structToValue(v)
	default:
		return huml.Value{}, fmt.Errorf("humlstruct: unsupported type %s", v.Type())
	}
}

func sliceToValue(v reflect.Value) (huml.Value, error) {
	items := make([]huml.Value, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		item, err := toValue(v.Index(i))
		if err != nil {
			return huml.Value{}, err
		}
		items = append(items, item)
	}
	return huml.List(items), nil
}

func mapToValue(v reflect.Value) (huml.Value, error) {
	if v.Type().Key().Kind() != reflect.String {
		return huml.Value{}, fmt.Errorf("humlstruct: map key type must be string, not %s", v.Type().Key())
	}
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	d := huml.NewDict()
	for _, key := range keys {
		val, err := toValue(v.MapIndex(key))
		if err != nil {
			return huml.Value{}, err
		}
		d.Append(key.String(), val)
	}
	return huml.FromDict(d), nil
}

func structToValue(v reflect.Value) (huml.Value, error) {
	d := huml.NewDict()
	for _, f := range structFields(v.Type()) {
		fv := v.Field(f.index)
		if f.omitempty && fv.IsZero() {
			continue
		}
		val, err := toValue(fv)
		if err != nil {
			return huml.Value{}, err
		}
		d.Append(f.name, val)
	}
	return huml.FromDict(d), nil
}

// indirect walks down a chain of pointers and interfaces, returning an
// invalid reflect.Value for a nil pointer along the way (marshalled as
// null). The iteration cap guards against circular data structures.
func indirect(v reflect.Value) (reflect.Value, error) {
	for i := 0; i < 1000; i++ {
		if !v.IsValid() {
			return v, nil
		}
		kind := v.Kind()
		if kind != reflect.Pointer && kind != reflect.Interface {
			return v, nil
		}
		if v.IsNil() {
			return reflect.Value{}, nil
		}
		v = v.Elem()
	}
	return reflect.Value{}, fmt.Errorf("humlstruct: circular or excessively deep data structure")
}

// fromValue decodes a huml.Value into dst, which must be settable.
func fromValue(v huml.Value, dst reflect.Value) error {
	for dst.Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		dst = dst.Elem()
	}

	if dst.Kind() == reflect.Interface && dst.NumMethod() == 0 {
		native, err := toNative(v)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(native))
		return nil
	}

	switch v.Kind() {
	case huml.KindNull:
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	case huml.KindBool:
		b, _ := v.AsBool()
		if dst.Kind() != reflect.Bool {
			return fmt.Errorf("humlstruct: cannot decode bool into %s", dst.Type())
		}
		dst.SetBool(b)
		return nil
	case huml.KindInt:
		i, _ := v.AsInt()
		switch dst.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetInt(i)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			dst.SetUint(uint64(i))
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(float64(i))
		default:
			return fmt.Errorf("humlstruct: cannot decode int into %s", dst.Type())
		}
		return nil
	case huml.KindFloat:
		f, _ := v.AsFloat()
		if dst.Kind() != reflect.Float32 && dst.Kind() != reflect.Float64 {
			return fmt.Errorf("humlstruct: cannot decode float into %s", dst.Type())
		}
		dst.SetFloat(f)
		return nil
	case huml.KindString:
		s, _ := v.AsString()
		if dst.Kind() != reflect.String {
			return fmt.Errorf("humlstruct: cannot decode string into %s", dst.Type())
		}
		dst.SetString(s)
		return nil
	case huml.KindList:
		return listIntoValue(v, dst)
	case huml.KindDict:
		return dictIntoValue(v, dst)
	default:
		return fmt.Errorf("humlstruct: unknown value kind")
	}
}

func listIntoValue(v huml.Value, dst reflect.Value) error {
	items, _ := v.AsList()
	if dst.Kind() != reflect.Slice {
		return fmt.Errorf("humlstruct: cannot decode list into %s", dst.Type())
	}
	out := reflect.MakeSlice(dst.Type(), len(items), len(items))
	for i, item := range items {
		if err := fromValue(item, out.Index(i)); err != nil {
			return err
		}
	}
	dst.Set(out)
	return nil
}

func dictIntoValue(v huml.Value, dst reflect.Value) error {
	d, _ := v.AsDict()
	switch dst.Kind() {
	case reflect.Struct:
		byName := make(map[string]int, len(structFields(dst.Type())))
		for _, f := range structFields(dst.Type()) {
			byName[f.name] = f.index
		}
		for _, e := range d.Entries() {
			idx, ok := byName[e.Key]
			if !ok {
				continue
			}
			if err := fromValue(e.Value, dst.Field(idx)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if dst.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("humlstruct: map key type must be string, not %s", dst.Type().Key())
		}
		out := reflect.MakeMapWithSize(dst.Type(), d.Len())
		for _, e := range d.Entries() {
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := fromValue(e.Value, elem); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(e.Key).Convert(dst.Type().Key()), elem)
		}
		dst.Set(out)
		return nil
	default:
		return fmt.Errorf("humlstruct: cannot decode dict into %s", dst.Type())
	}
}

// toNative converts v into the nearest plain Go value (bool, int64,
// float64, string, []any, map[string]any, nil), for decoding into an
// interface{}-typed destination.
func toNative(v huml.Value) (any, error) {
	switch v.Kind() {
	case huml.KindNull:
		return nil, nil
	case huml.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case huml.KindInt:
		i, _ := v.AsInt()
		return i, nil
	case huml.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case huml.KindString:
		s, _ := v.AsString()
		return s, nil
	case huml.KindList:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, item := range items {
			n, err := toNative(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case huml.KindDict:
		d, _ := v.AsDict()
		out := make(map[string]any, d.Len())
		for _, e := range d.Entries() {
			n, err := toNative(e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("humlstruct: unknown value kind")
	}
}
