package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompile_EmptyInput(t *testing.T) {
	s := NewService(nil)
	res := s.Compile(context.Background(), "   ", Options{})
	require.True(t, res.Success)
	require.Equal(t, "", res.Code)
	require.Equal(t, CompilerRegex, res.Compiler)
}

func TestCompile_ForceRegex(t *testing.T) {
	s := NewService(NewEsbuildRunner("/usr/local/bin/esbuild"))
	res := s.Compile(context.Background(), "const x: number = 1;", Options{ForceRegex: true})
	require.True(t, res.Success)
	require.Equal(t, CompilerRegex, res.Compiler)
	require.Contains(t, res.Code, "const x")
	require.NotContains(t, res.Code, ": number")
}

func TestCompile_NoEsbuildNoFullFeaturesUsesRegex(t *testing.T) {
	s := NewService(nil)
	res := s.Compile(context.Background(), "function add(a: number, b: number): number { return a + b; }", Options{})
	require.True(t, res.Success)
	require.Equal(t, CompilerRegex, res.Compiler)
}

func TestCompile_NoEsbuildNeedsFullCompilationFails(t *testing.T) {
	s := NewService(nil)
	res := s.Compile(context.Background(), "enum Color { Red, Green, Blue }", Options{})
	require.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
}

func TestCompile_Idempotence(t *testing.T) {
	s := NewService(nil)
	samples := []string{
		"function greet(name: string): string { return `hi ${name}`; }",
		"interface Point { x: number; y: number; }\nconst p: Point = { x: 1, y: 2 };",
		"const value = (raw as unknown) as string;",
		"class Widget { private label: string = \"w\"; }",
	}

	for _, src := range samples {
		require.False(t, needsFullCompilation(src), "fixture must not require full compilation: %s", src)
		first := s.Compile(context.Background(), src, Options{})
		second := s.Compile(context.Background(), first.Code, Options{})
		require.Equal(t, first.Code, second.Code, "compile must be idempotent for: %s", src)
	}
}

func TestNeedsFullCompilation(t *testing.T) {
	cases := map[string]bool{
		"enum Color { Red, Green }":                                true,
		"const enum Color { Red, Green }":                          true,
		"namespace Foo { export const x = 1; }":                    true,
		"class Point { constructor(public x: number) {} }":         true,
		"const el = <Widget prop={1} />;":                          true,
		"const frag = <>{children}</>;":                            true,
		"interface Point { x: number; }":                           false,
		"type Alias = { x: number };":                               false,
		"abstract class Base { abstract run(): void; }":            false,
		"function f(a: number): number { return a; }":              false,
	}
	for src, want := range cases {
		require.Equal(t, want, needsFullCompilation(src), "source: %s", src)
	}
}
