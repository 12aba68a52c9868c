package container

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/buildkite/shellwords"
)

var (
	// posixBare matches words sh passes through untouched.
	posixBare = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)
	// batchBare is the cmd.exe equivalent; = , and % are special there.
	batchBare = regexp.MustCompile(`^[A-Za-z0-9_@+:./\\-]+$`)
)

// Join quotes each word for the host shell and joins them with spaces.
func Join(words ...string) string {
	return JoinFor(runtime.GOOS, words...)
}

// JoinFor is Join for an explicit target OS.
func JoinFor(goos string, words ...string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = quoteWord(goos, w)
	}
	return strings.Join(quoted, " ")
}

func quoteWord(goos, w string) string {
	if goos == "windows" {
		return quoteBatch(w)
	}
	return quotePosix(w)
}

// quotePosix single-quotes anything that is not a bare word. Single quotes
// are the only POSIX form with no escapes inside, so the word reaches the
// program byte for byte.
func quotePosix(w string) string {
	if posixBare.MatchString(w) {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}

// quoteBatch leaves caret escaping to shellwords where cmd.exe honours it,
// outside quotes. Words with whitespace need quotes, and carets inside
// quotes are literal, so those are wrapped with inner quotes doubled.
func quoteBatch(w string) string {
	if batchBare.MatchString(w) {
		return w
	}
	if w != "" && !strings.ContainsAny(w, " \t\n\"") {
		return shellwords.QuoteBatch(w)
	}
	return `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
}
