package launch

import (
	"slices"
	"sort"
	"strings"
)

// FilterEnv returns a copy of environ (os.Environ form) without the entries
// that assign one of the excluded keys.  Every other entry is kept byte for
// byte and in order, including entries with no '=' or an empty key.  The
// input is not modified.
func FilterEnv(environ []string, exclude ...string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		if withheld(kv, exclude) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// Withheld lists, sorted and without repeats, the excluded keys that
// FilterEnv would remove from environ.
func Withheld(environ []string, exclude ...string) []string {
	var keys []string
	for _, kv := range environ {
		if !withheld(kv, exclude) {
			continue
		}
		k, _, _ := strings.Cut(kv, "=")
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func withheld(kv string, exclude []string) bool {
	k, _, ok := strings.Cut(kv, "=")
	return ok && slices.Contains(exclude, k)
}
