package metrics

import (
	"fmt"
	"path"
	"reflect"
	"strings"
)

// metricTags are the struct tags decorating a measure field:
//   - metric: the measure name, relative to its group
//   - group: adds a path element to all measures below this field
//   - unit: count (default), bytes, milliseconds or instructions
//   - description: describes the measure and its views
//   - extraviews: comma separated extra aggregations (count, sum, lastvalue)
//   - tags: comma separated tag keys the views are broken down by
type metricTags struct {
	metric      string
	group       string
	unit        string
	description string
	views       []string
	keys        []string
}

func parseTags(field reflect.StructField) metricTags {
	return metricTags{
		metric:      field.Tag.Get("metric"),
		group:       field.Tag.Get("group"),
		unit:        field.Tag.Get("unit"),
		description: field.Tag.Get("description"),
		views:       splitList(field.Tag.Get("extraviews")),
		keys:        splitList(field.Tag.Get("tags")),
	}
}

func splitList(s string) []string {
	var list []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

type metricAdder func(m interface{}, name string, t metricTags) interface{}

func equalType(a, b interface{}) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// scanStruct allocates every tagged measure found in the struct pointed to by m
func scanStruct(parent string, adder metricAdder, m interface{}) {
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("scanStruct requires a pointer to a struct, got: %T", m))
	}
	scanValue(parent, adder, rv.Elem())
}

func scanValue(parent string, adder metricAdder, v reflect.Value) {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		field, value := typ.Field(i), v.Field(i)
		if !value.CanSet() {
			continue
		}
		t := parseTags(field)
		location := path.Join(parent, t.group)

		switch {
		case t.metric != "":
			if value.Kind() != reflect.Ptr {
				continue
			}
			measure := adder(reflect.New(value.Type().Elem()).Interface(), path.Join(location, t.metric), t)
			if measure != nil {
				value.Set(reflect.ValueOf(measure))
			}
		case value.Kind() == reflect.Struct:
			scanValue(location, adder, value)
		case value.Kind() == reflect.Ptr && value.Type().Elem().Kind() == reflect.Struct:
			if value.IsNil() {
				value.Set(reflect.New(value.Type().Elem()))
			}
			scanValue(location, adder, value.Elem())
		}
	}
}
