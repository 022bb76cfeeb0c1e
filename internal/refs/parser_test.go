package refs

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantRefs []string
		wantMsg  string
	}{
		{
			name:    "no references",
			input:   "just a plain message",
			wantMsg: "just a plain message",
		},
		{
			name:     "bare reference",
			input:    "summarize @notes.txt please",
			wantRefs: []string{"notes.txt"},
			wantMsg:  "summarize  please",
		},
		{
			name:     "double quoted path with spaces",
			input:    `@"my docs/report.txt" tell me about it`,
			wantRefs: []string{"my docs/report.txt"},
			wantMsg:  "tell me about it",
		},
		{
			name:     "single quoted path",
			input:    "@'a b/c.txt' what is this",
			wantRefs: []string{"a b/c.txt"},
			wantMsg:  "what is this",
		},
		{
			name:     "url reference",
			input:    "compare with @https://example.com/page.html now",
			wantRefs: []string{"https://example.com/page.html"},
			wantMsg:  "compare with  now",
		},
		{
			name:     "multiple references keep input order",
			input:    `@one.txt then @"two three.txt" then @four.txt`,
			wantRefs: []string{"one.txt", "two three.txt", "four.txt"},
			wantMsg:  "then  then",
		},
		{
			name:     "whitespace after marker",
			input:    "@  spaced.txt hello",
			wantRefs: []string{"spaced.txt"},
			wantMsg:  "hello",
		},
		{
			name:     "reference only",
			input:    "@notes.txt",
			wantRefs: []string{"notes.txt"},
			wantMsg:  "",
		},
		{
			name:    "empty input",
			input:   "",
			wantMsg: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.input)
			if !reflect.DeepEqual(got.References, tc.wantRefs) {
				t.Errorf("References = %q, want %q", got.References, tc.wantRefs)
			}
			if got.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tc.wantMsg)
			}
		})
	}
}

func TestFinalizeMessage(t *testing.T) {
	cases := []struct {
		name         string
		cleaned      string
		contextAdded bool
		hadErrors    bool
		want         string
	}{
		{"text survives", "hello", true, true, "hello"},
		{"context only", "", true, false, PlaceholderContextOnly},
		{"context and errors", "", true, true, PlaceholderContextOnly},
		{"errors only", "", false, true, PlaceholderErrorsOnly},
		{"nothing at all", "", false, false, PlaceholderEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FinalizeMessage(tc.cleaned, tc.contextAdded, tc.hadErrors)
			if got != tc.want {
				t.Errorf("FinalizeMessage(%q, %v, %v) = %q, want %q",
					tc.cleaned, tc.contextAdded, tc.hadErrors, got, tc.want)
			}
		})
	}
}
