// Package renderer turns template sources into personalized subject and body
// strings. Placeholders use the {{name}} output syntax; a variable that is
// missing from the context renders as the empty string.
package renderer

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

// Renderer is a pure template substitution engine. Safe for concurrent use.
type Renderer struct {
	engine *liquid.Engine
}

func New() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

// wellKnownKeys are always present in the rendering context so templates
// referencing them never fail, even for sparse lead documents.
var wellKnownKeys = []string{
	// lead fields
	"first_name", "last_name", "name", "email", "company", "provider", "status",
	// sender fields
	"account_signature", "sender_name", "sender_email", "sender_first_name", "sender_last_name",
	// business fields
	"business_name", "website", "phone", "address",
	// campaign fields
	"campaign_name",
}

// BuildContext layers the caller's fields over the well-known defaults and
// derives the friendly display values:
//   - name is joined from first_name/last_name, or split into them
//   - provider stands in for a missing company
//   - empty first_name/name display as "there", empty company as "your company"
func BuildContext(fields map[string]interface{}) map[string]interface{} {
	ctx := make(map[string]interface{}, len(wellKnownKeys)+len(fields)+1)
	for _, key := range wellKnownKeys {
		ctx[key] = ""
	}
	ctx["unsubscribe_link"] = "#"
	for key, value := range fields {
		ctx[key] = value
	}

	name := stringValue(ctx["name"])
	firstName := stringValue(ctx["first_name"])
	lastName := stringValue(ctx["last_name"])

	if name == "" && (firstName != "" || lastName != "") {
		name = strings.TrimSpace(firstName + " " + lastName)
		ctx["name"] = name
	}
	if firstName == "" && name != "" {
		parts := strings.SplitN(name, " ", 2)
		firstName = parts[0]
		ctx["first_name"] = firstName
		if len(parts) > 1 {
			ctx["last_name"] = parts[1]
		}
	}

	company := stringValue(ctx["company"])
	if company == "" {
		company = stringValue(ctx["provider"])
		ctx["company"] = company
	}

	if firstName == "" {
		ctx["first_name"] = "there"
	}
	if name == "" {
		ctx["name"] = "there"
	}
	if company == "" {
		ctx["company"] = "your company"
	}

	return ctx
}

// Render substitutes the context into the subject and body sources.
func (r *Renderer) Render(subjectSrc, bodySrc string, fields map[string]interface{}) (string, string, error) {
	ctx := BuildContext(fields)

	subject, err := r.engine.ParseAndRenderString(subjectSrc, ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	body, err := r.engine.ParseAndRenderString(bodySrc, ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}

	return subject, body, nil
}

// AppendSignature appends the account signature to a rendered body. No-op
// for empty signatures.
func AppendSignature(html, signature string) string {
	if signature == "" {
		return html
	}
	return html + "<br>" + signature
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}
