package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gokanplan/internal/compiler"
	"github.com/gitrdm/gokanplan/internal/logging"
	"github.com/gitrdm/gokanplan/pkg/planner"
)

const doorDomain = `(defdomain door (
  (:operator (!open ?d) ((closed ?d)) ((closed ?d)) ((open ?d)))
  (:operator (!walk ?from ?to) ((at ?from) (door ?from ?to ?d) (open ?d)) ((at ?from)) ((at ?to)))
  (:method (enter ?to)
    ((at ?from) (door ?from ?to ?d) (closed ?d))
    ((!open ?d) (!walk ?from ?to))
    ((at ?from) (door ?from ?to ?d))
    ((!walk ?from ?to)))))
`

const doorProblems = `(defproblem closed-door door
  ((at hall) (door hall kitchen d1) (closed d1))
  ((enter kitchen)))

(defproblem no-door door
  ((at hall))
  ((enter kitchen)))

(def-problem-set reachable (closed-door))
`

func writeInputs(t *testing.T) (dir, domain, problems string) {
	t.Helper()
	dir = t.TempDir()
	domain = filepath.Join(dir, "door.lisp")
	problems = filepath.Join(dir, "door-problems.lisp")
	require.NoError(t, os.WriteFile(domain, []byte(doorDomain), 0o644))
	require.NoError(t, os.WriteFile(problems, []byte(doorProblems), 0o644))
	return dir, domain, problems
}

func TestRunPlanProblemSet(t *testing.T) {
	_, domain, problems := writeInputs(t)
	var out bytes.Buffer

	err := runPlan(context.Background(), domain, problems, planOptions{Planner: planner.DefaultConfig(), Select: "reachable"}, &out, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "problem closed-door: 1 plan(s)\nplan 1:\n(!open d1)\n(!walk hall kitchen)\ncost 2\n", out.String())
}

func TestRunPlanReportsMissingPlans(t *testing.T) {
	_, domain, problems := writeInputs(t)
	var out bytes.Buffer

	err := runPlan(context.Background(), domain, problems, planOptions{Planner: planner.DefaultConfig()}, &out, logging.NewNop())
	assert.EqualError(t, err, "1 of 2 problems have no plan")
	assert.Contains(t, out.String(), "problem no-door: no plan\n")
}

func TestRunPlanUnknownSelection(t *testing.T) {
	_, domain, problems := writeInputs(t)
	err := runPlan(context.Background(), domain, problems, planOptions{Select: "attic"}, &bytes.Buffer{}, logging.NewNop())
	assert.EqualError(t, err, "no problem or problem set named attic")
}

func TestRunCheck(t *testing.T) {
	_, domain, problems := writeInputs(t)
	var out bytes.Buffer

	require.NoError(t, runCheck(domain, []string{problems}, &out, logging.NewNop()))
	assert.Contains(t, out.String(), "domain door: 4 constants, 1 compound tasks, 2 primitive tasks, 1 methods, 2 operators, 0 axioms")
	assert.Contains(t, out.String(), "2 problems, 1 problem sets")

	bad := filepath.Join(t.TempDir(), "bad.lisp")
	require.NoError(t, os.WriteFile(bad, []byte("(defdomain door ())"), 0o644))
	var se *compiler.SyntaxError
	assert.ErrorAs(t, runCheck(bad, nil, &out, logging.NewNop()), &se)
}

func TestCompileDomainAndProblemFiles(t *testing.T) {
	dir, domain, problems := writeInputs(t)
	out := filepath.Join(dir, "gen")

	require.NoError(t, compileDomainFile(domain, out, compiler.EmitOptions{}, logging.NewNop()))
	m, err := compiler.LoadManifest(filepath.Join(out, "door", "door.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "door", m.Domain)
	_, err = os.Stat(filepath.Join(out, "door", "natives.go"))
	assert.True(t, os.IsNotExist(err), "domains without natives get no natives.go")

	emit := compiler.EmitOptions{DomainImport: "example.com/gen/door"}
	require.NoError(t, compileProblemFiles(context.Background(), []string{problems}, m, out, emit, logging.NewNop()))
	for _, name := range []string{"closed-door", "no-door"} {
		_, err := os.Stat(filepath.Join(out, name, "main.go"))
		assert.NoError(t, err, name)
	}

	err = compileProblemFiles(context.Background(), []string{problems, filepath.Join(dir, "missing.lisp")}, m, out, emit, logging.NewNop())
	assert.ErrorContains(t, err, "failed to read problems")
}

const tollDomain = `(defdomain toll (
  (:operator (!pay ?a) ((at ?a)) nil ((paid ?a)) (call toll ?a))))
`

func TestRunPlanRejectsUserNatives(t *testing.T) {
	dir := t.TempDir()
	domain := filepath.Join(dir, "toll.lisp")
	problems := filepath.Join(dir, "toll-problems.lisp")
	require.NoError(t, os.WriteFile(domain, []byte(tollDomain), 0o644))
	require.NoError(t, os.WriteFile(problems, []byte("(defproblem gate toll ((at bridge)) ((!pay bridge)))"), 0o644))

	err := runPlan(context.Background(), domain, problems, planOptions{Planner: planner.DefaultConfig()}, &bytes.Buffer{}, logging.NewNop())
	require.ErrorIs(t, err, errNativesUnavailable)
	assert.ErrorContains(t, err, "toll")
}

func TestCompileDomainWritesNativesOnce(t *testing.T) {
	dir := t.TempDir()
	domain := filepath.Join(dir, "toll.lisp")
	require.NoError(t, os.WriteFile(domain, []byte(tollDomain), 0o644))
	out := filepath.Join(dir, "gen")

	require.NoError(t, compileDomainFile(domain, out, compiler.EmitOptions{}, logging.NewNop()))
	stub := filepath.Join(out, "toll", "natives.go")
	src, err := os.ReadFile(stub)
	require.NoError(t, err)
	assert.Contains(t, string(src), `reg.Register("toll"`)

	edited := []byte("package toll\n\n// edited\n")
	require.NoError(t, os.WriteFile(stub, edited, 0o644))
	require.NoError(t, compileDomainFile(domain, out, compiler.EmitOptions{}, logging.NewNop()))
	src, err = os.ReadFile(stub)
	require.NoError(t, err)
	assert.Equal(t, edited, src)
}
