package propertytest

import (
	"math/rand"
	"strings"
)

// Generator produces one bounded random value per call.
type Generator func(r *rand.Rand) interface{}

// GeneratorFor maps a normalized annotation string to a bounded generator.
// Unannotated and unrecognized types fall back to a narrower integer range,
// matching the original's "no annotation -> integers in [-100, 100]"
// default.
func GeneratorFor(annotation string) Generator {
	a := strings.TrimSpace(annotation)
	if a == "" {
		return intGenerator(-100, 100)
	}

	if inner, ok := optionalInner(a); ok {
		base := GeneratorFor(inner)
		return func(r *rand.Rand) interface{} {
			if r.Intn(4) == 0 {
				return nil
			}
			return base(r)
		}
	}

	switch {
	case a == "int":
		return intGenerator(-1000, 1000)
	case a == "float":
		return floatGenerator(-1000, 1000)
	case a == "str":
		return stringGenerator(100)
	case a == "bool":
		return boolGenerator()
	case a == "bytes":
		return bytesGenerator(100)
	case strings.HasPrefix(a, "List[") || a == "list":
		elem := genericArg(a)
		elemGen := GeneratorFor(elem)
		return listGenerator(elemGen, 50)
	case strings.HasPrefix(a, "Dict[") || a == "dict":
		k, v := genericArgPair(a)
		return dictGenerator(GeneratorFor(k), GeneratorFor(v), 20)
	case strings.HasPrefix(a, "Set[") || a == "set":
		elem := genericArg(a)
		return setGenerator(GeneratorFor(elem), 50)
	case strings.HasPrefix(a, "Tuple[") || a == "tuple":
		return tupleGenerator(intGenerator(-1000, 1000), intGenerator(-1000, 1000))
	default:
		return intGenerator(-100, 100)
	}
}

func optionalInner(a string) (string, bool) {
	if strings.HasPrefix(a, "Optional[") && strings.HasSuffix(a, "]") {
		return a[len("Optional[") : len(a)-1], true
	}
	if strings.Contains(a, "|") && strings.Contains(a, "None") {
		parts := strings.Split(a, "|")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "None" {
				return p, true
			}
		}
	}
	return "", false
}

// genericArg extracts the single type argument from "List[int]"-shaped
// strings; returns "" (integers) when there isn't one.
func genericArg(a string) string {
	i := strings.Index(a, "[")
	j := strings.LastIndex(a, "]")
	if i == -1 || j == -1 || j <= i {
		return ""
	}
	return a[i+1 : j]
}

func genericArgPair(a string) (string, string) {
	inner := genericArg(a)
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return "str", "int"
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func intGenerator(min, max int) Generator {
	return func(r *rand.Rand) interface{} {
		return int64(min + r.Intn(max-min+1))
	}
}

func floatGenerator(min, max float64) Generator {
	return func(r *rand.Rand) interface{} {
		return min + r.Float64()*(max-min)
	}
}

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 _-"

func stringGenerator(maxLen int) Generator {
	return func(r *rand.Rand) interface{} {
		n := r.Intn(maxLen + 1)
		b := make([]byte, n)
		for i := range b {
			b[i] = alphabet[r.Intn(len(alphabet))]
		}
		return string(b)
	}
}

func bytesGenerator(maxLen int) Generator {
	return func(r *rand.Rand) interface{} {
		n := r.Intn(maxLen + 1)
		b := make([]byte, n)
		r.Read(b)
		return b
	}
}

func boolGenerator() Generator {
	return func(r *rand.Rand) interface{} { return r.Intn(2) == 1 }
}

func listGenerator(elem Generator, maxLen int) Generator {
	return func(r *rand.Rand) interface{} {
		n := r.Intn(maxLen + 1)
		out := make([]interface{}, n)
		for i := range out {
			out[i] = elem(r)
		}
		return out
	}
}

func setGenerator(elem Generator, maxLen int) Generator {
	return func(r *rand.Rand) interface{} {
		n := r.Intn(maxLen + 1)
		seen := map[interface{}]bool{}
		out := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			v := elem(r)
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
		return out
	}
}

func dictGenerator(key, val Generator, maxLen int) Generator {
	return func(r *rand.Rand) interface{} {
		n := r.Intn(maxLen + 1)
		out := make(map[string]interface{}, n)
		for i := 0; i < n; i++ {
			k := key(r)
			ks, ok := k.(string)
			if !ok {
				ks = stringGenerator(10)(r).(string)
			}
			out[ks] = val(r)
		}
		return out
	}
}

func tupleGenerator(a, b Generator) Generator {
	return func(r *rand.Rand) interface{} {
		return []interface{}{a(r), b(r)}
	}
}
