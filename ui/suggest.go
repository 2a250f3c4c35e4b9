package ui

import "strings"

// ChatCommands are the /-commands offered by the command suggester, in
// the order Twitch documents them.
var ChatCommands = []string{
	"ban", "unban", "clear", "color", "commercial", "delete", "disconnect",
	"emoteonly", "emoteonlyoff", "followers", "followersoff", "help",
	"host", "unhost", "marker", "me", "mod", "unmod", "mods", "r9kbeta",
	"r9kbetaoff", "raid", "unraid", "slow", "slowoff", "subscribers",
	"subscribersoff", "timeout", "untimeout", "vip", "unvip", "vips", "w",
}

// SuggestPrefix returns the first candidate with the given prefix,
// case-insensitively. An empty prefix suggests nothing.
func SuggestPrefix(candidates []string, prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	lowered := strings.ToLower(prefix)
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lowered) {
			return c, true
		}
	}
	return "", false
}

// Suggest computes the completion for the current input text:
//   - "/prefix" completes against the chat command list
//   - "@prefix" (as the last word) completes against seen chatters
//
// The returned string is the full input with the completion applied;
// ok is false when there is nothing to suggest.
func Suggest(input string, chatters []string) (string, bool) {
	if strings.HasPrefix(input, "/") {
		rest := input[1:]
		if strings.ContainsRune(rest, ' ') {
			return "", false
		}
		cmd, ok := SuggestPrefix(ChatCommands, rest)
		if !ok {
			return "", false
		}
		return "/" + cmd, true
	}

	// Complete the trailing @word against chatters.
	idx := strings.LastIndexByte(input, '@')
	if idx < 0 {
		return "", false
	}
	word := input[idx+1:]
	if strings.ContainsRune(word, ' ') {
		return "", false
	}
	login, ok := SuggestPrefix(chatters, word)
	if !ok {
		return "", false
	}
	return input[:idx+1] + login, true
}
