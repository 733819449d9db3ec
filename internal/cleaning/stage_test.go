package cleaning

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviedw/internal/config"
	"moviedw/internal/datasource/file"
	"moviedw/internal/logger"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestStage_Run_RatingsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(in, 0o755))
	require.NoError(t, os.Mkdir(out, 0o755))

	writeFile(t, in, "avaliacoes_raw.csv",
		"User_ID,Filme Título,Nota ,Comentário\n"+
			"1,Matrix,9,Ótimo\n"+
			"1,Matrix,9,Ótimo\n"+
			"2,Matrix,12,\n"+
			"3,\"Broken,quote,9,x\n")

	st := Stage{
		Config:     Ratings(DefaultDefaults()),
		InputDirs:  []string{filepath.Join(dir, "missing"), in},
		OutputDirs: []string{filepath.Join(dir, "nope", "deeper"), out},
		Parser:     config.Options{"lazy_quotes": false},
		Logger:     logger.Discard{},
	}
	res, err := st.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(in, "avaliacoes_raw.csv"), res.Input)
	assert.Equal(t, filepath.Join(out, "avaliacoes_clean.csv"), res.Output)
	assert.Equal(t, 1, res.Summary.Duplicates)
	assert.Equal(t, 1, res.Summary.Kept)

	body, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Equal(t, "user_id,filme_titulo,nota,comentario\n1,Matrix,9.0,Ótimo\n", string(body))
}

func TestStage_Run_MissingInputIsFatal(t *testing.T) {
	dir := t.TempDir()
	st := Stage{
		Config:     Users(),
		InputDirs:  []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")},
		OutputDirs: []string{dir},
		Logger:     logger.Discard{},
	}
	_, err := st.Run(context.Background())
	require.ErrorIs(t, err, file.ErrNoCandidate)
	assert.Equal(t, "users", st.Name())
}

func TestStage_Run_MissingColumnIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "usuarios_raw.csv", "nome,email\nAna,ana@example.com\n")

	st := Stage{
		Config:     Users(),
		InputDirs:  []string{dir},
		OutputDirs: []string{dir},
		Logger:     logger.Discard{},
	}
	_, err := st.Run(context.Background())
	require.ErrorIs(t, err, ErrMissingColumn)

	_, statErr := os.Stat(filepath.Join(dir, "usuarios_clean.csv"))
	assert.True(t, os.IsNotExist(statErr), "no output is written when cleaning fails")
}
