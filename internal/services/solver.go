package services

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/studypilot-backend/internal/clients/redis"
	"github.com/yungbote/studypilot-backend/internal/clients/wolfram"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/pkg/httpx"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// SolveMathToolName is the function name advertised to the completion model.
const SolveMathToolName = "solve_math_problem"

//go:embed howto.yaml
var curatedStepsYAML []byte

// SolveStrategy is one podstate hint tried against the math service. The
// chain is data-driven so the fallback order can be tested apart from the
// query mechanics.
type SolveStrategy struct {
	Name     string
	Podstate string
}

func DefaultSolveStrategies() []SolveStrategy {
	return []SolveStrategy{
		{Name: "result_steps", Podstate: "Result__Step-by-step+solution"},
		{Name: "result_show_steps", Podstate: "Result__Show+steps"},
		{Name: "integral_steps", Podstate: "IndefiniteIntegral__Step-by-step+solution"},
		{Name: "derivative_steps", Podstate: "Derivative__Step-by-step+solution"},
	}
}

// SolverService turns a natural-language math problem into a ToolResult by
// walking an ordered strategy chain against the math service. It never
// returns an error value; all failure is encoded in the result so the tool
// protocol upstream stays well-formed.
type SolverService interface {
	Solve(ctx context.Context, problem string) types.ToolResult
	CuratedSteps(problem string) (string, bool)
	ToolDefinition() types.ToolDefinition
}

type solverService struct {
	log        *logger.Logger
	client     wolfram.Client
	cache      redis.SolverCache
	strategies []SolveStrategy
	curated    map[string]string
	pause      time.Duration
}

// NewSolverService builds the solver. client may be nil when the math
// service is not configured; Solve then degrades to failed results. cache
// may be nil. Empty strategies fall back to the default chain. pause is the
// polite delay after a transport failure before the next strategy attempt.
func NewSolverService(client wolfram.Client, cache redis.SolverCache, strategies []SolveStrategy, pause time.Duration, baseLog *logger.Logger) (SolverService, error) {
	curated, err := loadCuratedSteps()
	if err != nil {
		return nil, fmt.Errorf("load curated steps: %w", err)
	}
	if len(strategies) == 0 {
		strategies = DefaultSolveStrategies()
	}
	return &solverService{
		log:        baseLog.With("service", "SolverService"),
		client:     client,
		cache:      cache,
		strategies: strategies,
		curated:    curated,
		pause:      pause,
	}, nil
}

func loadCuratedSteps() (map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(curatedStepsYAML, &raw); err != nil {
		return nil, err
	}
	curated := make(map[string]string, len(raw))
	for problem, steps := range raw {
		curated[normalizeProblem(problem)] = steps
	}
	return curated, nil
}

// normalizeProblem lowercases and collapses whitespace so cache keys and
// curated lookups tolerate spacing and casing differences.
func normalizeProblem(problem string) string {
	return strings.Join(strings.Fields(strings.ToLower(problem)), " ")
}

func (s *solverService) ToolDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        SolveMathToolName,
		Description: "Solve mathematical problems including algebra, calculus, derivatives, integrals, and equations. Returns step-by-step solutions with explanations.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"problem": map[string]any{
					"type":        "string",
					"description": "The mathematical problem to solve. Examples: 'solve x^2 - 5x + 6 = 0', 'derivative of x^3 + 2x^2', 'integrate x^2 dx', 'simplify sqrt(50)'",
				},
			},
			"required": []string{"problem"},
		},
	}
}

// CuratedSteps returns the plain-language explanation for a known problem.
func (s *solverService) CuratedSteps(problem string) (string, bool) {
	steps, ok := s.curated[normalizeProblem(problem)]
	return steps, ok
}

func (s *solverService) Solve(ctx context.Context, problem string) types.ToolResult {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return failedSolve(problem, "empty problem")
	}
	if s.client == nil {
		return failedSolve(problem, "math solver is not configured")
	}

	key := normalizeProblem(problem)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.log.Debug("Solver cache hit", "problem", problem)
			result := *cached
			result.Problem = problem
			return result
		}
	}

	result := s.solveUpstream(ctx, problem)
	if result.Success && s.cache != nil {
		s.cache.Set(ctx, key, &result)
	}
	return result
}

// solveUpstream walks the strategy chain in order and stops at the first
// attempt that yields at least one content-bearing pod. A structural miss
// (upstream success flag false) and a transport failure both mean "this
// strategy produced nothing usable; try the next one". Only after the whole
// chain misses is a bare query without a podstate issued as a last resort.
func (s *solverService) solveUpstream(ctx context.Context, problem string) types.ToolResult {
	var lastErr error
	for _, strategy := range s.strategies {
		if ctx.Err() != nil {
			return failedSolve(problem, ctx.Err().Error())
		}
		qr, err := s.client.Query(ctx, problem, strategy.Podstate)
		if err != nil {
			lastErr = err
			s.log.Warn("Solver strategy failed", "strategy", strategy.Name, "error", err)
			s.politePause(err)
			continue
		}
		if !qr.Success {
			s.log.Debug("Solver strategy returned no result", "strategy", strategy.Name, "upstream_error", qr.ErrorMessage())
			continue
		}
		pods := contentPods(qr)
		if len(pods) == 0 {
			s.log.Debug("Solver strategy returned no content pods", "strategy", strategy.Name)
			continue
		}
		s.log.Debug("Solver strategy succeeded", "strategy", strategy.Name, "pods", len(pods))
		return s.strategyResult(problem, pods)
	}
	return s.bareFallback(ctx, problem, lastErr)
}

// strategyResult extracts answer, steps and interpretation from the pods of
// a successful strategy attempt. Pod labels are matched by case-insensitive
// substring: "step" wins over "result" so a step-by-step pod is never
// misread as the answer.
func (s *solverService) strategyResult(problem string, pods []podContent) types.ToolResult {
	var stepParts []string
	var answer, interpretation string
	for _, pod := range pods {
		title := strings.ToLower(pod.Title)
		id := strings.ToLower(pod.ID)
		switch {
		case strings.Contains(title, "step") || strings.Contains(id, "step"):
			stepParts = append(stepParts, pod.Content)
		case strings.Contains(id, "result") || strings.Contains(title, "result"):
			answer = pod.Content
		case strings.Contains(id, "input"):
			interpretation = pod.Content
		}
	}

	steps := strings.TrimSpace(strings.Join(stepParts, "\n\n"))
	if steps == "" {
		steps = formatPodsAsSteps(pods)
	}
	if curated, ok := s.CuratedSteps(problem); ok {
		steps = curated
	}
	if answer == "" {
		answer = pods[0].Content
	}
	if interpretation == "" {
		interpretation = problem
	}

	return types.ToolResult{
		Success:             true,
		Problem:             problem,
		Answer:              answer,
		Steps:               steps,
		InputInterpretation: interpretation,
		SolutionSummary:     solutionSummary(problem, answer, steps),
	}
}

// bareFallback queries without any podstate to recover at least a raw
// answer. Unlike the strategy path it only reads an explicit result pod and
// leaves the interpretation empty.
func (s *solverService) bareFallback(ctx context.Context, problem string, lastErr error) types.ToolResult {
	qr, err := s.client.Query(ctx, problem, "")
	if err != nil {
		s.log.Warn("Solver bare fallback failed", "error", err)
		return failedSolve(problem, err.Error())
	}
	if !qr.Success {
		reason := qr.ErrorMessage()
		if reason == "" {
			if lastErr != nil {
				reason = lastErr.Error()
			} else {
				reason = "no result for input"
			}
		}
		s.log.Debug("Solver bare fallback returned no result", "upstream_error", reason)
		return failedSolve(problem, reason)
	}

	pods := contentPods(qr)
	var answer string
	for _, pod := range pods {
		if strings.Contains(strings.ToLower(pod.ID), "result") {
			answer = pod.Content
			break
		}
	}
	steps, ok := s.CuratedSteps(problem)
	if !ok {
		steps = formatPodsAsSteps(pods)
	}

	return types.ToolResult{
		Success:         true,
		Problem:         problem,
		Answer:          answer,
		Steps:           steps,
		SolutionSummary: solutionSummary(problem, answer, steps),
	}
}

func (s *solverService) politePause(err error) {
	if s.pause <= 0 || !httpx.IsTransportError(err) {
		return
	}
	wait := s.pause
	if hint := wolfram.RetryAfterHint(err); hint > wait {
		wait = hint
	}
	time.Sleep(httpx.JitterSleep(wait))
}

type podContent struct {
	ID      string
	Title   string
	Content string
}

func contentPods(qr *wolfram.QueryResult) []podContent {
	var pods []podContent
	for _, pod := range qr.Pods {
		content := pod.PlainText()
		if content == "" {
			continue
		}
		pods = append(pods, podContent{ID: pod.ID, Title: pod.Title, Content: content})
	}
	return pods
}

// formatPodsAsSteps renders pods as a step-like listing when no explicit
// steps pod exists.
func formatPodsAsSteps(pods []podContent) string {
	lines := make([]string, 0, len(pods))
	for i, pod := range pods {
		lines = append(lines, fmt.Sprintf("Step %d (%s):\n%s", i+1, pod.Title, pod.Content))
	}
	return strings.Join(lines, "\n\n")
}

func solutionSummary(problem, answer, steps string) string {
	if answer != "" {
		return fmt.Sprintf("Problem: %s\n\nSolution Steps:\n%s\n\nFinal Answer: %s", problem, steps, answer)
	}
	return fmt.Sprintf("Steps:\n%s", steps)
}

func failedSolve(problem, reason string) types.ToolResult {
	return types.ToolResult{Success: false, Problem: problem, Error: reason}
}
