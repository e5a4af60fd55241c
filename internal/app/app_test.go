package app

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
)

type brokenEngine struct{}

func (brokenEngine) Init(context.Context) error                        { return errors.New("tesseract not found") }
func (brokenEngine) Recognize(context.Context, []byte) (string, error) { return "", nil }
func (brokenEngine) Close() error                                      { return nil }

func testConfig() *common.Config {
	cfg := common.DefaultConfig()
	cfg.Database.DSN = ":memory:"
	cfg.OCR.Enabled = false
	return cfg
}

func TestBuildRecordsJobs(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NotNil(t, a.Jobs)
	require.NotNil(t, a.Export)
	assert.Nil(t, a.Recognizer)

	resp := a.Processor.ExtractRegatta(ctx, regatta.Request{
		PDFBase64:  base64.StdEncoding.EncodeToString([]byte("not a pdf")),
		SailNumber: "GER 12345",
	})
	assert.False(t, resp.Result.Success)
	assert.Equal(t, constants.ConfidenceLow, resp.Result.Confidence)
	assert.NotEmpty(t, resp.Result.Feedback)

	job, err := a.Jobs.GetByID(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDegraded, job.Status)
}

func TestBuildWithoutDB(t *testing.T) {
	a, err := Build(context.Background(), testConfig(), nil, WithoutDB(), WithoutCache())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Jobs)
	assert.NotNil(t, a.Processor)
}

func TestBuildDisablesOCRWhenEngineFails(t *testing.T) {
	cfg := testConfig()
	cfg.OCR.Enabled = true
	a, err := Build(context.Background(), cfg, nil, WithoutDB(), WithOCROptions(ocr.WithEngine(brokenEngine{})))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	assert.Nil(t, a.Recognizer)
}

func TestBuildClassCatalog(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "classes.toml")
	require.NoError(t, os.WriteFile(good, []byte("[[class]]\nname = \"Pirat\"\ncrew = 2\n"), 0o644))
	cfg := testConfig()
	cfg.Extraction.ClassCatalog = good
	a, err := Build(context.Background(), cfg, nil, WithoutDB())
	require.NoError(t, err)
	a.Close()

	bad := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[[class]\n"), 0o644))
	cfg.Extraction.ClassCatalog = bad
	_, err = Build(context.Background(), cfg, nil, WithoutDB())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	cfg.Extraction.ClassCatalog = filepath.Join(dir, "missing.toml")
	_, err = Build(context.Background(), cfg, nil, WithoutDB())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
