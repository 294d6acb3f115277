//go:build !debug

package check

func Assert(_ bool, _ string) {}

func Assertf(_ bool, _ string, _ ...any) {}

func NonNegative(_ string, _ int) {}
