package remote

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mvchalupnik/qudi/faults"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Dispatch invokes an exported method of a local module instance on behalf
// of a remote proxy. The argument list arrives as a JSON array and the
// results are returned as JSON: null for no result, the bare value for one
// result, an array otherwise. A trailing error return is unwrapped and
// reported as a fault instead of a value.
func Dispatch(instance interface{}, method string, argsJSON string) (string, error) {
	m := reflect.ValueOf(instance).MethodByName(method)
	if !m.IsValid() {
		return "", faults.NewFault(faults.UNKNOWN_METHOD, fmt.Sprintf("no method %q", method))
	}
	mt := m.Type()
	if mt.IsVariadic() {
		return "", faults.NewFault(faults.UNKNOWN_METHOD, fmt.Sprintf("method %q is variadic and cannot be called remotely", method))
	}

	rawArgs := make([]json.RawMessage, 0)
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &rawArgs); err != nil {
			return "", faults.NewFault(faults.BAD_ARGUMENTS, fmt.Sprintf("arguments are not a JSON array: %s", err))
		}
	}
	if len(rawArgs) != mt.NumIn() {
		return "", faults.NewFault(faults.INCORRECT_PARAMETERS,
			fmt.Sprintf("method %q takes %d arguments, got %d", method, mt.NumIn(), len(rawArgs)))
	}

	in := make([]reflect.Value, mt.NumIn())
	for i := 0; i < mt.NumIn(); i++ {
		arg := reflect.New(mt.In(i))
		if err := json.Unmarshal(rawArgs[i], arg.Interface()); err != nil {
			return "", faults.NewFault(faults.BAD_ARGUMENTS,
				fmt.Sprintf("argument %d of method %q: %s", i, method, err))
		}
		in[i] = arg.Elem()
	}

	out := m.Call(in)

	if n := len(out); n > 0 && mt.Out(n-1) == errorType {
		if !out[n-1].IsNil() {
			return "", faults.NewFault(faults.FAILED, out[n-1].Interface().(error).Error())
		}
		out = out[:n-1]
	}

	var result interface{}
	switch len(out) {
	case 0:
		result = nil
	case 1:
		result = out[0].Interface()
	default:
		values := make([]interface{}, 0, len(out))
		for _, v := range out {
			values = append(values, v.Interface())
		}
		result = values
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", faults.NewFault(faults.FAILED, fmt.Sprintf("unable to encode result of %q: %s", method, err))
	}
	return string(b), nil
}
