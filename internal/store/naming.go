package store

import (
	"fmt"
	"strings"
)

func isNameChar(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == ':'
}

func isAlnum(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// SanitizeName strips characters outside {alnum, '_', '-', ':'} from a
// proposed model name. The result must keep at least one alphanumeric rune.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrValidation("model name cannot be empty")
	}
	var b strings.Builder
	hasAlnum := false
	for _, c := range name {
		if !isNameChar(c) {
			continue
		}
		if isAlnum(c) {
			hasAlnum = true
		}
		b.WriteRune(c)
	}
	if !hasAlnum {
		return "", ErrValidation("model name must contain at least one alphanumeric character")
	}
	return b.String(), nil
}

// ValidateName rejects a name that SanitizeName would alter.
func ValidateName(name string) error {
	clean, err := SanitizeName(name)
	if err != nil {
		return err
	}
	if clean != name {
		return ErrValidation(fmt.Sprintf("invalid model name %q, allowed characters are alphanumerics, '_', '-' and ':'", name))
	}
	return nil
}

// ParseArgList validates KEY=VALUE strings into an argument map.
// Keys are restricted to {alnum, '_', '-'}; values may be empty.
func ParseArgList(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, ErrValidation(fmt.Sprintf("argument %q is not in KEY=VALUE format", arg))
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, ErrValidation("argument key cannot be empty")
		}
		for _, c := range key {
			if !isAlnum(c) && c != '_' && c != '-' {
				return nil, ErrValidation(fmt.Sprintf("invalid argument key %q", key))
			}
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// ParseSourceSpec parses "REPO_ID:FILE" or a huggingface.co resolve URL into
// (repo, file).
func ParseSourceSpec(spec string) (repo, file string, err error) {
	usage := fmt.Sprintf("invalid repo spec %q, use REPO_ID:FILE or a huggingface.co URL", spec)
	if spec == "" {
		return "", "", ErrValidation(usage)
	}
	if strings.HasPrefix(spec, "https://huggingface.co/") {
		parts := strings.Split(strings.TrimPrefix(spec, "https://huggingface.co/"), "/")
		// expect: user/repo/resolve/<rev>/path/to/file
		if len(parts) < 5 || parts[2] != "resolve" {
			return "", "", ErrValidation(usage)
		}
		return parts[0] + "/" + parts[1], strings.Join(parts[4:], "/"), nil
	}
	repo, file, ok := strings.Cut(spec, ":")
	if !ok || repo == "" || file == "" {
		return "", "", ErrValidation(usage)
	}
	for _, c := range repo {
		if !isAlnum(c) && c != '-' && c != '_' && c != '/' && c != '.' {
			return "", "", ErrValidation(usage)
		}
	}
	return repo, file, nil
}
