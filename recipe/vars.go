package recipe

import (
	"crypto/rand"
	"encoding/base64"
	"sort"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/utils"
)

// Vars are the values recipe strings are rendered with.
type Vars map[string]string

// Builtins every recipe can reference. They are derived when not set
// explicitly.
const (
	VarAppName    = "app_name"
	VarAppSlug    = "app_slug"
	VarDBUser     = "db_user"
	VarDBPassword = "db_password"
	VarRunID      = "run_id"
)

var funcs = template.FuncMap{
	"parameterize": func(s string) string { return utils.Parameterize(s, "_") },
	"upper":        strings.ToUpper,
	"lower":        strings.ToLower,
}

// ResolveVars merges the recipe's vars with overrides, fills in the
// builtins and renders every value. A var may reference others; cycles and
// unknown names are errors. app_slug and db_user are derived once app_name
// has been rendered, so app_name may itself be a template.
func (r *Recipe) ResolveVars(overrides map[string]string) (Vars, error) {
	raw := Vars{}
	for k, v := range r.Vars {
		raw[k] = v
	}
	for k, v := range overrides {
		raw[k] = v
	}

	resolved := Vars{}
	pending := make([]string, 0, len(raw))
	for k, v := range raw {
		if strings.Contains(v, "{{") {
			pending = append(pending, k)
		} else {
			resolved[k] = v
		}
	}
	sort.Strings(pending)
	if err := resolved.fillSecrets(); err != nil {
		return nil, err
	}
	resolved.deriveNames(pending)

	for len(pending) > 0 {
		var (
			next    []string
			lastErr error
		)
		for _, k := range pending {
			out, err := render(k, raw[k], resolved)
			if err != nil {
				next = append(next, k)
				lastErr = err
				continue
			}
			resolved[k] = out
		}
		if len(next) == len(pending) {
			return nil, errors.Wrapf(lastErr, "resolve vars %s", strings.Join(next, ", "))
		}
		pending = next
		resolved.deriveNames(pending)
	}

	if err := resolved.validateNames(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// deriveNames fills app_slug from app_name and db_user from app_slug,
// unless the recipe or an override still has them to render.
func (v Vars) deriveNames(pending []string) {
	waiting := func(k string) bool {
		for _, p := range pending {
			if p == k {
				return true
			}
		}
		return false
	}
	if v[VarAppName] != "" && v[VarAppSlug] == "" && !waiting(VarAppName) && !waiting(VarAppSlug) {
		v[VarAppSlug] = utils.FormatProjectName(v[VarAppName])
	}
	if v[VarAppSlug] != "" && v[VarDBUser] == "" && !waiting(VarAppSlug) && !waiting(VarDBUser) {
		v[VarDBUser] = v[VarAppSlug]
	}
}

func (v Vars) fillSecrets() error {
	if v[VarDBPassword] == "" {
		pw, err := randomPassword(12)
		if err != nil {
			return err
		}
		v[VarDBPassword] = pw
	}
	if v[VarRunID] == "" {
		v[VarRunID] = uuid.NewString()
	}
	return nil
}

// validateNames rejects application and database names the generators
// would refuse: Rails needs a name starting with a letter.
func (v Vars) validateNames() error {
	if name, ok := v[VarAppName]; ok && !utils.IsValidProjectName(utils.Parameterize(name, "_")) {
		return errors.Errorf("invalid %s %q: must start with a letter", VarAppName, name)
	}
	for _, k := range []string{VarAppSlug, VarDBUser} {
		if val, ok := v[k]; ok && !utils.IsValidProjectName(val) {
			return errors.Errorf("invalid %s %q: must start with a letter and hold only letters, digits, - or _", k, val)
		}
	}
	return nil
}

// randomPassword base64-encodes n random bytes.
func randomPassword(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate password")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Render expands s against the vars.
func (v Vars) Render(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	return render("", s, v)
}

func render(name, s string, data Vars) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(s)
	if err != nil {
		return "", errors.Wrap(err, "parse template")
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, map[string]string(data)); err != nil {
		return "", errors.Wrapf(err, "render %q", firstLine(s))
	}
	return b.String(), nil
}

// ParseAssignments reads k=v pairs as given on the command line.
func ParseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Errorf("invalid var %q (want key=value)", p)
		}
		out[k] = v
	}
	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "..."
	}
	return s
}
