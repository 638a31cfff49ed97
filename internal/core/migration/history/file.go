package history

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
)

// NoBackwardMessage is raised by the backward action of irreversible units.
const NoBackwardMessage = "no auto backward migration"

const noteHeading = "backward views SQL, apply by hand:"

var fileTemplate = template.Must(template.New("migration").Parse(`// auto generated by kmigrator
{{.Identity}}
{{.Views}}

exports.up = async (knex) => {
    await knex.raw(` + "`" + `
    {{.Forward}}
    ` + "`" + `)
}

exports.down = async (knex) => {
{{- if .Irreversible}}
{{- range .Note}}
    // {{.}}
{{- end}}
    throw new Error('` + NoBackwardMessage + `')
{{- else}}
    await knex.raw(` + "`" + `
    {{.Backward}}
    ` + "`" + `)
{{- end}}
}
`))

var (
	jsEscaper   = strings.NewReplacer(`\`, `\\`, "`", "\\`", "${", `\${`)
	jsUnescaper = strings.NewReplacer(`\\`, `\`, "\\`", "`", `\${`, "${")

	upPattern   = regexp.MustCompile("(?s)exports\\.up = async \\(knex\\) => \\{\n    await knex\\.raw\\(`\n    (.*?)\n    `\\)")
	downPattern = regexp.MustCompile("(?s)exports\\.down = async \\(knex\\) => \\{\n    await knex\\.raw\\(`\n    (.*?)\n    `\\)")
	namePattern = regexp.MustCompile(`^(\d{14})-(.+)\.js$`)
)

// Render produces the migration file text of a unit.
func Render(u *domain.Unit) (string, error) {
	var note []string
	if u.Irreversible && u.BackwardNote != "" {
		note = append(note, noteHeading)
		note = append(note, strings.Split(strings.TrimRight(u.BackwardNote, "\n"), "\n")...)
	}
	var buf bytes.Buffer
	err := fileTemplate.Execute(&buf, struct {
		Identity, Views   string
		Forward, Backward string
		Irreversible      bool
		Note              []string
	}{
		Identity:     FormatTag(IdentityMarker, u.Name, u.Definition),
		Views:        FormatTag(ViewsMarker, u.Name, u.Views),
		Forward:      jsEscaper.Replace(u.ForwardSQL),
		Backward:     jsEscaper.Replace(u.BackwardSQL),
		Irreversible: u.Irreversible,
		Note:         note,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render migration %s: %w", u.Name, err)
	}
	return buf.String(), nil
}

// Parse reads a migration file back into a unit. The creation time is taken
// from the file name when it carries the timestamp prefix.
func Parse(fileName, text string) (*domain.Unit, error) {
	ids, err := IdentityTags(text)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: no %s header", fileName, IdentityMarker)
	}
	id := ids[len(ids)-1]
	u := &domain.Unit{Name: id.Name, Definition: id.Payload}

	views, err := ViewsTags(text)
	if err != nil {
		return nil, err
	}
	if len(views) > 0 {
		u.Views = views[len(views)-1].Payload
	}

	if m := namePattern.FindStringSubmatch(fileName); m != nil {
		if ts, err := time.ParseInLocation(domain.FileTimeLayout, m[1], time.Local); err == nil {
			u.CreatedAt = ts
		}
	}
	if m := upPattern.FindStringSubmatch(text); m != nil {
		u.ForwardSQL = jsUnescaper.Replace(m[1])
	}
	if m := downPattern.FindStringSubmatch(text); m != nil {
		u.BackwardSQL = jsUnescaper.Replace(m[1])
	} else {
		u.Irreversible = strings.Contains(text, NoBackwardMessage)
		u.BackwardNote = parseNote(text)
	}
	return u, nil
}

// parseNote collects the comment lines following the note heading.
func parseNote(text string) string {
	_, rest, ok := strings.Cut(text, "    // "+noteHeading+"\n")
	if !ok {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(rest, "\n") {
		body, ok := strings.CutPrefix(line, "    // ")
		if !ok {
			break
		}
		lines = append(lines, body)
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
