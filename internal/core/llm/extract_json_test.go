package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantErr bool
	}{
		{
			name:    "pure_object",
			input:   `{"tags":["ЦБ"]}`,
			wantKey: "tags",
		},
		{
			name:    "object_with_preamble",
			input:   `Вот ответ: {"tags":["ЦБ"]} готово.`,
			wantKey: "tags",
		},
		{
			name:    "markdown_wrapped",
			input:   "```json\n{\"emoji\":[\"📈\"]}\n```",
			wantKey: "emoji",
		},
		{
			name:    "trailing_commas",
			input:   `{"tags":["ЦБ","Ставка",],"code":{"rates":0.9,},}`,
			wantKey: "code",
		},
		{
			name:    "nested_braces_in_strings",
			input:   `{"tags":["{x}"],"emoji":[]}`,
			wantKey: "tags",
		},
		{
			name:    "array_is_not_object",
			input:   `[{"tags":[]}]`,
			wantKey: "tags",
		},
		{
			name:    "no_json",
			input:   "просто текст",
			wantErr: true,
		},
		{
			name:    "broken_braces",
			input:   "text { not json } more",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrParse) {
					t.Fatalf("ExtractJSON(%q) error = %v, want ErrParse", tt.input, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("ExtractJSON(%q) unexpected error: %v", tt.input, err)
			}

			if _, ok := got[tt.wantKey]; !ok {
				t.Errorf("ExtractJSON(%q) = %v, missing key %q", tt.input, got, tt.wantKey)
			}
		})
	}
}
