package compiler

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// Service is the TypeScript Compile Service described in §4.8.
type Service struct {
	esbuild *EsbuildRunner
}

// NewService constructs a Service. runner may be nil or report
// Available()==false; Compile then uses the regex path for sources that
// do not need full compilation and returns a failed Result for those that
// do.
func NewService(runner *EsbuildRunner) *Service {
	if runner == nil {
		runner = NewEsbuildRunner("")
	}
	return &Service{esbuild: runner}
}

// Compile implements §4.8's routing: empty input short-circuits; forced
// or unavailable-and-unneeded routes to the regex stripper; otherwise the
// esbuild collaborator is invoked, with a regex fallback on transport
// failure when full compilation wasn't required.
func (s *Service) Compile(ctx context.Context, code string, opts Options) Result {
	if strings.TrimSpace(code) == "" {
		return Result{Success: true, Code: "", Warnings: []string{}, Compiler: CompilerRegex}
	}

	if opts.Loader == "" {
		opts.Loader = LoaderTS
	}
	if opts.Format == "" {
		opts.Format = FormatESM
	}

	needsFull := needsFullCompilation(code)

	if opts.ForceRegex || (!s.esbuild.Available() && !needsFull) {
		return s.regexResult(code)
	}

	if !s.esbuild.Available() {
		// Full compilation required but no esbuild collaborator configured.
		return Result{
			Success:  false,
			Warnings: []string{},
			Errors:   []string{"esbuild not available and source requires full compilation"},
			Compiler: CompilerEsbuild,
		}
	}

	resp, err := s.esbuild.Transform(ctx, code, opts)
	if err != nil {
		if !needsFull {
			log.Warn().Err(err).Msg("esbuild transport failure, falling back to regex stripper")
			res := s.regexResult(code)
			res.Warnings = append(res.Warnings, "esbuild unavailable: "+err.Error())
			return res
		}
		return Result{
			Success:  false,
			Warnings: []string{},
			Errors:   []string{"esbuild transport failure: " + err.Error()},
			Compiler: CompilerEsbuild,
		}
	}

	if len(resp.Errors) > 0 {
		return Result{
			Success:  false,
			Code:     resp.Code,
			Map:      resp.Map,
			Warnings: defaultSlice(resp.Warnings),
			Errors:   resp.Errors,
			Compiler: CompilerEsbuild,
		}
	}

	return Result{
		Success:  true,
		Code:     resp.Code,
		Map:      resp.Map,
		Warnings: defaultSlice(resp.Warnings),
		Compiler: CompilerEsbuild,
	}
}

func (s *Service) regexResult(code string) Result {
	return Result{
		Success:  true,
		Code:     regexStrip(code),
		Warnings: []string{},
		Compiler: CompilerRegex,
	}
}

func defaultSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
