package langdetect

import "testing"

func TestDetectISO6391(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "empty", text: "", want: ""},
		{name: "too short", text: "hola", want: ""},
		{name: "english", text: "The quick brown fox jumps over the lazy dog near the river bank.", want: "en"},
		{name: "spanish", text: "Me gustaría reservar una mesa para dos personas esta noche, por favor.", want: "es"},
		{name: "german", text: "Ich möchte heute Abend einen Tisch für zwei Personen reservieren.", want: "de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectISO6391(tt.text); got != tt.want {
				t.Errorf("DetectISO6391(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
