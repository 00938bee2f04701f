package mortar_test

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/tomasbasham/mortar"
)

type Animal int

const (
	Unknown Animal = iota
	Gopher
	Zebra
)

func (a Animal) MarshalForm() (string, error) {
	switch a {
	case Gopher:
		return "gopher", nil
	case Zebra:
		return "zebra", nil
	default:
		return "unknown", nil
	}
}

type Upload struct {
	Name   string         `form:"name"`
	Tags   []string       `form:"tags,each"`
	Meta   map[string]int `form:"meta"`
	Files  []mortar.File  `form:"files"`
	Kind   Animal         `form:"kind"`
	Count  int            `form:"count,omitempty"`
	Note   *string        `form:"note"`
	Secret string         `form:"-"`
}

type CreateUser struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// part is a comparable view of a payload pair, with file content read out.
type part struct {
	Name        string
	Text        string
	Filename    string
	ContentType string
}

func flatten(t *testing.T, p mortar.Payload) []part {
	t.Helper()

	parts := make([]part, 0, len(p))
	for _, pair := range p {
		switch v := pair.Value.(type) {
		case mortar.File:
			var b bytes.Buffer
			if v.Content != nil {
				if _, err := io.Copy(&b, v.Content); err != nil {
					t.Fatalf("failed to read file %q: %v", pair.Name, err)
				}
			}
			parts = append(parts, part{
				Name:        pair.Name,
				Text:        b.String(),
				Filename:    v.Filename,
				ContentType: v.ContentType,
			})
		case string:
			parts = append(parts, part{Name: pair.Name, Text: v})
		default:
			t.Fatalf("unexpected value %T for field %q", pair.Value, pair.Name)
		}
	}
	return parts
}

// Priority marshals itself only through a pointer receiver.
type Priority int

func (p *Priority) MarshalForm() (string, error) {
	switch *p {
	case 0:
		return "low", nil
	default:
		return "high", nil
	}
}

// Version marshals itself as text only through a pointer receiver.
type Version struct {
	Major, Minor int
}

func (v *Version) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("v%d.%d", v.Major, v.Minor)), nil
}

type Ticket struct {
	Title    string   `form:"title"`
	Priority Priority `form:"priority"`
	Version  Version  `form:"version"`
}
