package domain

import (
	"errors"
	"testing"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/imaging"
)

func TestSubmissionValidate(t *testing.T) {
	valid := Submission{
		Image:       []byte{1},
		Subject:     DefaultSubject,
		Replacement: DefaultReplacement,
		Style:       "Ghibli Style",
		Quality:     90,
		Resolution:  "auto",
		Format:      "auto",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid submission, got error: %v", err)
	}

	emptySides := valid
	emptySides.Subject = ""
	emptySides.Replacement = ""
	if err := emptySides.Validate(); err != nil {
		t.Fatalf("expected empty subject and replacement to pass, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Submission)
	}{
		{name: "missing image", mutate: func(s *Submission) { s.Image = nil }},
		{name: "unknown style", mutate: func(s *Submission) { s.Style = "Watercolor" }},
		{name: "quality too low", mutate: func(s *Submission) { s.Quality = 49 }},
		{name: "quality too high", mutate: func(s *Submission) { s.Quality = 101 }},
		{name: "resolution", mutate: func(s *Submission) { s.Resolution = "640" }},
		{name: "format", mutate: func(s *Submission) { s.Format = "gif" }},
		{name: "webhook scheme", mutate: func(s *Submission) { s.WebhookURL = "ftp://example.com/hook" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSubmissionValidateOmittedSelectionsMeanAuto(t *testing.T) {
	s := Submission{
		Image:       []byte("x"),
		Subject:     DefaultSubject,
		Replacement: DefaultReplacement,
		Style:       "Realistic",
		Quality:     90,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected omitted resolution and format to pass, got %v", err)
	}
}

func TestSubmissionValidateRejectsUnencodableFormat(t *testing.T) {
	s := Submission{Image: []byte("x"), Style: "Realistic", Quality: 90, Format: "webp"}
	err := s.Validate()
	if imaging.Supports("webp") {
		if err != nil {
			t.Fatalf("expected webp to pass when encodable, got %v", err)
		}
		return
	}
	if !errors.Is(err, imaging.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestEditFinished(t *testing.T) {
	if (Edit{Status: EditStatusProcessing}).Finished() {
		t.Fatal("expected processing edit to be unfinished")
	}
	if !(Edit{Status: EditStatusFailed}).Finished() {
		t.Fatal("expected failed edit to be finished")
	}
}
