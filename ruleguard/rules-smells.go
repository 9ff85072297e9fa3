package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// 1) Two consecutive guards with the same return can be merged with ||
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// 2) Nested loops are worth a second look
	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// logging keeps diagnostics on the injected *slog.Logger outside cmd/.
func logging(m dsl.Matcher) {
	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Print($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`)).
		Report(`use the injected *slog.Logger instead of the log package`)

	m.Match(`fmt.Printf($*_)`, `fmt.Println($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`library code should not print to stdout; log through slog or return the value`)
}

// errorsIdiom flags comparisons that break on wrapped errors.
func errorsIdiom(m dsl.Matcher) {
	m.Match(`$err == sql.ErrNoRows`, `$err != sql.ErrNoRows`).
		Report(`compare with errors.Is; storage errors are wrapped`).
		Suggest(`errors.Is($err, sql.ErrNoRows)`)

	m.Match(`$err == context.DeadlineExceeded`, `$err == context.Canceled`).
		Report(`compare with errors.Is; dispatch errors wrap the context error`)

	m.Match(`fmt.Errorf($msg, $*_, $err)`).
		Where(m["err"].Type.Is(`error`) && !m["msg"].Text.Matches(`%w`)).
		Report(`wrap errors with %w so callers can errors.Is/As them`)
}
