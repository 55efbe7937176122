// Provide serialization functions for compliance with the REdis Serialization Protocol
// specification, see: https://redis.io/docs/reference/protocol-spec/#resp-protocol-description
package resp

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

type SimpleString string

const OK = SimpleString("OK")

func Serialize(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return SerializeNil(), nil
	case error:
		return SerializeError(v), nil
	case SimpleString:
		return SerializeSimpleStr(string(v)), nil
	case string:
		return SerializeStr(v), nil
	case []string:
		return SerializeArr(v), nil
	case bool:
		return SerializeBool(v), nil
	case int:
		return SerializeInt(v), nil
	}

	tp := reflect.TypeOf(v)
	switch tp.Kind() {
	case reflect.Map:
		return serializeMap(reflect.ValueOf(v))
	case reflect.Slice:
		arr := reflect.ValueOf(v)
		var out strings.Builder
		out.WriteString("*" + strconv.Itoa(arr.Len()) + "\r\n")
		for i := 0; i < arr.Len(); i++ {
			r, err := Serialize(arr.Index(i).Interface())
			if err != nil {
				return "", err
			}
			out.WriteString(r)
		}
		return out.String(), nil
	}

	return "", fmt.Errorf("value '%s' cannot be serialized", tp)
}

// Map keys are written in sorted order so replies are stable.
func serializeMap(mp reflect.Value) (string, error) {
	keys := mp.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})

	var out strings.Builder
	out.WriteString("%" + strconv.Itoa(mp.Len()) + "\r\n")
	for _, k := range keys {
		r, err := Serialize(k.Interface())
		if err != nil {
			return "", err
		}
		out.WriteString(r)

		r, err = Serialize(mp.MapIndex(k).Interface())
		if err != nil {
			return "", err
		}
		out.WriteString(r)
	}
	return out.String(), nil
}

func SerializeNil() string {
	return "$-1\r\n"
}

func SerializeBool(b bool) string {
	if b {
		return "#t\r\n"
	}
	return "#f\r\n"
}

func SerializeSimpleStr(str string) string {
	return "+" + str + "\r\n"
}

func SerializeStr(str string) string {
	return "$" + strconv.Itoa(len(str)) + "\r\n" + str + "\r\n"
}

// SerializeError writes err on a single line; RESP errors cannot span lines.
func SerializeError(err error) string {
	msg := strings.NewReplacer("\r", " ", "\n", " ").Replace(err.Error())
	return "-" + msg + "\r\n"
}

func SerializeInt(n int) string {
	return ":" + strconv.Itoa(n) + "\r\n"
}

func SerializeArr(arr []string) string {
	var out strings.Builder
	out.WriteString("*" + strconv.Itoa(len(arr)) + "\r\n")
	for _, s := range arr {
		out.WriteString(SerializeStr(s))
	}
	return out.String()
}
