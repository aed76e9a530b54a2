/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package alerts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/carverauto/sensorhub/pkg/models"
)

const (
	// DefaultSubjectTemplate is the notification subject.
	DefaultSubjectTemplate = `Alert: {{.SensorType}} is {{.Condition}} {{.Threshold}}`

	// DefaultBodyTemplate starts with the firing summary line, followed by
	// device details.
	DefaultBodyTemplate = `{{.Summary}}

Device: {{.DeviceName}} ({{.DeviceID}})
Reading: {{.Value}}{{with .Unit}} {{.}}{{end}} at {{.Timestamp}}
{{- with .OwnerName}}
Owner: {{.}}{{end}}
`
)

var errEmptyTemplate = errors.New("template is empty")

//nolint:gochecknoglobals // stateless
var subjectLineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// MessageData is what notification templates can reference.
type MessageData struct {
	SensorType string
	Condition  string
	Threshold  string
	Value      string
	Unit       string
	Timestamp  string
	DeviceID   string
	DeviceName string
	OwnerName  string
	Summary    string
}

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// Summary is the firing line used as audit message and body opener.
func Summary(rule *models.ThresholdRule, reading *models.ResolvedReading) string {
	return fmt.Sprintf("%s is %s %s: %s",
		reading.TypeName, rule.Condition, FormatThreshold(rule.Threshold), reading.Value)
}

// NewMessageData collects the template fields for one firing.
func NewMessageData(
	rule *models.ThresholdRule, reading *models.ResolvedReading, device *models.Device, owner *models.OwnerContext,
) *MessageData {
	data := &MessageData{
		SensorType: reading.TypeName,
		Condition:  string(rule.Condition),
		Threshold:  FormatThreshold(rule.Threshold),
		Value:      reading.Value,
		Unit:       reading.Unit,
		Timestamp:  reading.Timestamp.UTC().Format(time.RFC3339),
		Summary:    Summary(rule, reading),
	}

	if device != nil {
		data.DeviceID = device.ID
		data.DeviceName = device.DisplayName()
	}

	if owner != nil {
		data.OwnerName = owner.Name()
	} else if device != nil {
		data.OwnerName = device.Owner
	}

	return data
}

// Renderer turns MessageData into a subject and body.
type Renderer struct {
	subject *template.Template
	body    *template.Template
}

// NewRenderer parses the templates, falling back to the defaults for empty
// strings. Templates are trial-rendered so unknown fields fail here rather
// than at send time.
func NewRenderer(subject, body string) (*Renderer, error) {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubjectTemplate
	}

	if strings.TrimSpace(body) == "" {
		body = DefaultBodyTemplate
	}

	subjectTmpl, err := parseTemplate("subject", subject)
	if err != nil {
		return nil, err
	}

	bodyTmpl, err := parseTemplate("body", body)
	if err != nil {
		return nil, err
	}

	r := &Renderer{subject: subjectTmpl, body: bodyTmpl}

	if _, err := r.Render(&MessageData{}); err != nil {
		return nil, err
	}

	return r, nil
}

// defaultRenderer panics only if the built-in templates stop parsing.
func defaultRenderer() *Renderer {
	return &Renderer{
		subject: template.Must(parseTemplate("subject", DefaultSubjectTemplate)),
		body:    template.Must(parseTemplate("body", DefaultBodyTemplate)),
	}
}

func parseTemplate(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", name, errEmptyTemplate)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}

	return tmpl, nil
}

// Render executes both templates. Line breaks in the subject become spaces
// and surrounding whitespace is trimmed.
func (r *Renderer) Render(data *MessageData) (Message, error) {
	var subject, body bytes.Buffer

	if err := r.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}

	if err := r.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}

	return Message{
		Subject: strings.TrimSpace(subjectLineBreaks.Replace(subject.String())),
		Body:    body.String(),
	}, nil
}
