package rpm

import (
	"fmt"
	"strings"
	"text/template"
)

// specTemplate is the rpm spec rendered for every build. The payload is
// prebuilt (the pipeline packages an already-compiled binary), so debuginfo
// extraction and automatic dependency scanning are disabled and %install is
// a straight copy of the unpacked source tree into the buildroot.
const specTemplate = `%global debug_package %{nil}

Name:           {{.Name}}
Version:        {{.Version}}
Release:        {{.Release}}
Summary:        {{.Summary}}
License:        {{.License}}
{{- if .URL}}
URL:            {{.URL}}
{{- end}}
Source0:        %{name}-%{version}.tar.gz
AutoReqProv:    no
{{- range .Requires}}
Requires:       {{.}}
{{- end}}

%description
{{.Description}}

%prep
%setup -q

%install
rm -rf %{buildroot}
mkdir -p %{buildroot}
cp -a . %{buildroot}/
{{- if .PostInstall}}

%post
{{.PostInstall}}
{{- end}}
{{- if .PostUninstall}}

%postun
{{.PostUninstall}}
{{- end}}

%files
{{- range .Files}}
{{if .IsConf}}%config(noreplace) {{end}}%attr({{printf "%o" .Mode}}, root, root) {{.DestPath}}
{{- end}}
`

var specTmpl = template.Must(template.New("spec").Parse(specTemplate))

// RenderSpec produces the spec file text for pkg.
func RenderSpec(pkg *Package) (string, error) {
	data := *pkg
	if data.Summary == "" {
		data.Summary = data.Name
	}
	if data.Description == "" {
		data.Description = data.Summary
	}
	if data.License == "" {
		data.License = "Unspecified"
	}

	var b strings.Builder
	if err := specTmpl.Execute(&b, &data); err != nil {
		return "", fmt.Errorf("executing spec template: %w", err)
	}
	return b.String(), nil
}
