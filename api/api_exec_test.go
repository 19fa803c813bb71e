//go:build unix

package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neicnordic/bpmn-validator/internal/commandexecutor"
	"github.com/neicnordic/bpmn-validator/internal/lintconfig"
	"github.com/neicnordic/bpmn-validator/internal/runner"
	"github.com/neicnordic/bpmn-validator/internal/stager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLinterRouter wires the real stager and runner around a script standing in
// for bpmnlint
func newLinterRouter(t *testing.T, script string) (*gin.Engine, string) {
	t.Helper()

	workDir := t.TempDir()
	uploadDir := t.TempDir()

	linter := filepath.Join(workDir, "bpmnlint")
	require.NoError(t, os.WriteFile(linter, []byte("#!/bin/sh\n"+script+"\n"), 0700))

	writer, err := lintconfig.NewWriter(lintconfig.Dir(workDir))
	require.NoError(t, err)

	s, err := stager.NewStager(stager.Dir(uploadDir))
	require.NoError(t, err)

	r, err := runner.NewRunner(
		runner.CommandExecutor(commandexecutor.OsCommandExecutor{}),
		runner.LintConfig(writer),
		runner.Command(linter),
		runner.Timeout(300*time.Millisecond),
	)
	require.NoError(t, err)

	impl, err := NewValidatorAPI(WithStager(s), WithRunner(r))
	require.NoError(t, err)

	router := gin.New()
	impl.RegisterRoutes(router)

	return router, uploadDir
}

func TestValidate_EndToEnd_InvalidXML(t *testing.T) {
	router, uploadDir := newLinterRouter(t, `
grep -q "<definitions" "$1" && exit 0
echo "Task_1 error Missing condition expression rule-name"
echo "2 problems"
exit 1`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest("/validate", "file", "process.bpmn", "not xml"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"status": "validation_issues",
		"problems": [{"element":"Task_1","type":"error","message":"Missing condition expression","rule":"rule-name"}],
		"summary": "2 problems"
	}`, w.Body.String())

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidate_EndToEnd_SameContentSameResult(t *testing.T) {
	router, _ := newLinterRouter(t, `
echo "Gateway_1 warning Gateway forks and joins no-gateway-join-fork"
echo "Task_1 error Missing label label-required"
exit 1`)

	var bodies []string
	for range 2 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest("/validate", "file", "process.bpmn", "<definitions/>"))
		require.Equal(t, http.StatusOK, w.Code)
		bodies = append(bodies, w.Body.String())
	}

	assert.JSONEq(t, bodies[0], bodies[1])
}

func TestValidate_EndToEnd_Timeout(t *testing.T) {
	router, uploadDir := newLinterRouter(t, `sleep 30`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest("/validate", "file", "process.bpmn", "<definitions/>"))

	assert.Equal(t, http.StatusRequestTimeout, w.Code)
	assert.JSONEq(t, `{"error":"Validation timed out"}`, w.Body.String())

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidate_EndToEnd_Crash(t *testing.T) {
	router, uploadDir := newLinterRouter(t, `echo "node: not found" >&2; exit 127`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest("/validate", "file", "process.bpmn", "<definitions/>"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Validation failed")

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateRaw_EndToEnd_FindingsFailRequest(t *testing.T) {
	router, uploadDir := newLinterRouter(t, `
echo "Task_1 error Missing label label-required"
echo "1 problems"
exit 1`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest("/validate/raw", "file", "process.bpmn", "<definitions/>"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"linter exited with status 1"}`, w.Body.String())

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
