package cli

import "text/template"

const employeeTemplate = `
=== Employee Details ===

ID:       {{.ID}}
Name:     {{.Name}}
Role:     {{.Role}}
Type:     {{.EmploymentType}}
Period:   {{.Period}}
Hours:    {{.WeeklyHours}}/week
{{- if .Notes }}
Notes:    {{.Notes}}
{{- end }}
Version:  {{.Version}}
Updated:  {{.UpdatedAt.Format "2006-01-02 15:04:05"}}
`

const rosterListTemplate = `
=== Roster{{if .Period}} {{.Period}}{{end}} ===

{{- if eq (len .Employees) 0 }}
No employees in the local mirror.

Run 'shiftsync sync' to pull the roster from the server.

{{ else }}
Found {{len .Employees}} employee(s):

{{- range .Employees }}
- {{ .Name }}
   ID:     {{ .ID }}
   Role:   {{ .Role }}
   Type:   {{ .EmploymentType }}
   Period: {{ .Period }}
   Hours:  {{ .WeeklyHours }}/week (v{{ .Version }})

{{- end }}
Use 'shiftsync get <id>' to view full details.
{{- end }}
`

const violationsTemplate = `
=== Rule Violations{{if .Period}} for {{.Period}}{{end}} ===

{{- if eq (len .Violations) 0 }}
No violations found across {{.Checked}} employee(s).
{{ else }}
Found {{len .Violations}} violation(s) across {{.Checked}} employee(s):

{{- range .Violations }}
- [{{ .Rule }}] {{ .Name }} ({{ .EntityID }}): {{ .Message }}
{{- end }}
{{- end }}
`

var (
	employeeTmpl   = template.Must(template.New("employee").Parse(employeeTemplate))
	rosterListTmpl = template.Must(template.New("roster").Parse(rosterListTemplate))
	violationsTmpl = template.Must(template.New("violations").Parse(violationsTemplate))
)
