package internal

import (
	"reflect"
	"strconv"
)

// Scalar lists the kinds the typed accessors convert to. Named types over
// them, such as type Slug string, work as well.
type Scalar interface {
	~string | ~int | ~int64 | ~float64 | ~bool
}

// QueryValue returns the query parameter name as T, or the zero value when
// it is missing or malformed.
//
//	page := subframe.QueryValue[int](req, "page")
func QueryValue[T Scalar](req *Request, name string) T {
	v, _ := parseScalar[T](req.Query(name))
	return v
}

// QueryDefault is QueryValue with a fallback for missing and malformed values.
func QueryDefault[T Scalar](req *Request, name string, def T) T {
	return parseOr(req.Query(name), def)
}

// PostValue returns the body parameter name as T.
func PostValue[T Scalar](req *Request, name string) T {
	v, _ := parseScalar[T](req.Post(name))
	return v
}

// ArgValue returns the i-th action argument as T.
//
//	app.Get(`/posts/(\d+)`, func(c *subframe.Call) (subframe.Result, error) {
//	    id := subframe.ArgValue[int64](c, 0)
//	    ...
//	})
func ArgValue[T Scalar](c *Call, i int) T {
	v, _ := parseScalar[T](c.Arg(i))
	return v
}

// ArgDefault is ArgValue with a fallback for absent and malformed arguments.
func ArgDefault[T Scalar](c *Call, i int, def T) T {
	return parseOr(c.Arg(i), def)
}

func parseOr[T Scalar](raw string, def T) T {
	if v, ok := parseScalar[T](raw); ok && raw != "" {
		return v
	}
	return def
}

// parseScalar converts raw by the underlying kind of T.
func parseScalar[T Scalar](raw string) (T, bool) {
	var out T
	v := reflect.ValueOf(&out).Elem()

	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return out, false
		}
		v.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return out, false
		}
		v.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return out, false
		}
		v.SetBool(b)
	default:
		return out, false
	}
	return out, true
}
