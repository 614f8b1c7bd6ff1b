package notify

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
)

//go:embed templates/*.md
var builtinTemplates embed.FS

// ErrUnknownKind reports a notification kind with no template.
var ErrUnknownKind = errors.New("notify: no template for kind")

// Data is the view model every template renders against.
type Data struct {
	Brand        string
	SupportEmail string
	Name         string
	Email        string
	Status       string
	TrackingID   string
	ResetLink    string
	Order        *domain.Order
	Inquiry      *domain.CorporateInquiry
}

// Message is a rendered notification. SMS is empty when the kind has no text variant.
type Message struct {
	Subject string
	HTML    string
	SMS     string
}

type frontMatter struct {
	Subject string `yaml:"subject"`
	SMS     string `yaml:"sms"`
}

type compiled struct {
	subject *template.Template
	sms     *template.Template
	body    *template.Template
}

// Catalog renders Markdown templates with YAML front matter into sanitized HTML email plus SMS text.
type Catalog struct {
	templates map[domain.NotificationKind]compiled
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy
}

// DefaultCatalog loads the templates compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	sub, err := fs.Sub(builtinTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return LoadCatalog(sub)
}

// LoadCatalog parses every <kind>.md file in fsys.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, err
	}
	printer := message.NewPrinter(language.MustParse("en-IN"))
	funcs := template.FuncMap{
		"inr": func(amount int64) string { return FormatINR(printer, amount) },
	}

	catalog := &Catalog{
		templates: make(map[domain.NotificationKind]compiled, len(entries)),
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:    emailPolicy(),
	}
	for _, name := range entries {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		kind := domain.NotificationKind(strings.TrimSuffix(path.Base(name), ".md"))
		fm, body := splitFrontMatter(string(raw))
		var meta frontMatter
		if err := yaml.Unmarshal([]byte(fm), &meta); err != nil {
			return nil, fmt.Errorf("notify: parse front matter %s: %w", name, err)
		}
		if strings.TrimSpace(meta.Subject) == "" {
			return nil, fmt.Errorf("notify: template %s has no subject", name)
		}
		var c compiled
		if c.subject, err = template.New(name + ":subject").Funcs(funcs).Parse(meta.Subject); err != nil {
			return nil, fmt.Errorf("notify: subject %s: %w", name, err)
		}
		if strings.TrimSpace(meta.SMS) != "" {
			if c.sms, err = template.New(name + ":sms").Funcs(funcs).Parse(meta.SMS); err != nil {
				return nil, fmt.Errorf("notify: sms %s: %w", name, err)
			}
		}
		if c.body, err = template.New(name + ":body").Funcs(funcs).Option("missingkey=error").Parse(body); err != nil {
			return nil, fmt.Errorf("notify: body %s: %w", name, err)
		}
		catalog.templates[kind] = c
	}
	return catalog, nil
}

// Render executes the template for kind.
func (c *Catalog) Render(kind domain.NotificationKind, data Data) (Message, error) {
	tmpl, ok := c.templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	subject, err := execute(tmpl.subject, data)
	if err != nil {
		return Message{}, err
	}
	markdown, err := execute(tmpl.body, data)
	if err != nil {
		return Message{}, err
	}
	var html bytes.Buffer
	if err := c.markdown.Convert([]byte(markdown), &html); err != nil {
		return Message{}, fmt.Errorf("notify: markdown %s: %w", kind, err)
	}
	msg := Message{
		Subject: strings.Join(strings.Fields(subject), " "),
		HTML:    c.policy.Sanitize(html.String()),
	}
	if tmpl.sms != nil {
		if msg.SMS, err = execute(tmpl.sms, data); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}

// Has reports whether kind has a template.
func (c *Catalog) Has(kind domain.NotificationKind) bool {
	_, ok := c.templates[kind]
	return ok
}

// FormatINR renders whole rupees with Indian digit grouping, e.g. ₹1,049.
func FormatINR(printer *message.Printer, amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "₹" + printer.Sprint(number.Decimal(amount))
}

func execute(tmpl *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func emailPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	if !strings.HasPrefix(input, "---") {
		return "", input
	}
	rest := strings.TrimPrefix(input, "---")
	fm, body, ok := strings.Cut(rest, "\n---")
	if !ok {
		return "", input
	}
	return fm, strings.TrimLeft(body, "\r\n")
}
