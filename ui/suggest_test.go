package ui

import "testing"

func TestSuggestChatCommands(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"/ba", "/ban", true},
		{"/time", "/timeout", true},
		{"/SLOW", "/slow", true},
		{"/zzz", "", false},
		{"/ban user", "", false}, // args typed, completion over
		{"/", "", false},
	}
	for _, tt := range tests {
		got, ok := Suggest(tt.input, nil)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Suggest(%q) = %q,%v want %q,%v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSuggestMentions(t *testing.T) {
	chatters := []string{"somestreamer", "someviewer", "other"}
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"@some", "@somestreamer", true},
		{"hi @oth", "hi @other", true},
		{"@nobody", "", false},
		{"no at sign", "", false},
		{"@some done ", "", false}, // word finished
	}
	for _, tt := range tests {
		got, ok := Suggest(tt.input, chatters)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Suggest(%q) = %q,%v want %q,%v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSuggestPrefixCaseInsensitive(t *testing.T) {
	got, ok := SuggestPrefix([]string{"SomeStreamer"}, "some")
	if !ok || got != "SomeStreamer" {
		t.Errorf("SuggestPrefix = %q,%v", got, ok)
	}
	if _, ok := SuggestPrefix([]string{"abc"}, ""); ok {
		t.Error("empty prefix should suggest nothing")
	}
}
