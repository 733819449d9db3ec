package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "moviedw.yaml")
	writeFile(t, path, "warehouse:\n  startup_delay: 0s\n"+
		"paths:\n  load_dirs: [\""+dir+"\"]\n"+
		"log:\n  level: error\n")
	return path
}

func TestRunMain_UsageErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-nope"}, "flag provided but not defined"},
		{"positional args", []string{"now"}, "usage: load"},
		{"unknown backend", []string{"-config", writeConfig(t, dir), "-backend", "oracle"}, "unsupported"},
		{"sqlite without dsn", []string{"-config", writeConfig(t, dir), "-backend", "sqlite"}, "dsn is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := runMain(context.Background(), tc.args, &stdout, &stderr)
			if code != 2 {
				t.Fatalf("exit code=%d, want 2; stderr=%q", code, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.want) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.want)
			}
		})
	}
}

func TestRunMain_LoadsSQLite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "filmes_clean_500.csv"),
		"titulo,ano_lancamento,genero,nota_imdb\nMatrix,1999,Acao,8.7\nUp,2009,Animacao,8.3\n")
	writeFile(t, filepath.Join(dir, "usuarios_clean.csv"),
		"nome,email,genero,pais\nAna,ana@example.com,F,Brasil\n")
	writeFile(t, filepath.Join(dir, "avaliacoes_clean.csv"),
		"user_id,filme_titulo,nota,comentario\n1,Matrix,9.0,otimo\n2,Up,8.0,Sem comentário\n")

	dbPath := filepath.Join(dir, "dw.db")
	reportPath := filepath.Join(dir, "load.yaml")
	args := []string{"-config", writeConfig(t, dir), "-backend", "sqlite", "-dsn", dbPath, "-report", reportPath}

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code=%d; stderr=%q", code, stderr.String())
	}
	want := "filmes     2\nusuarios   1\navaliacoes 2\n"
	if stdout.String() != want {
		t.Fatalf("stdout=%q, want %q", stdout.String(), want)
	}

	raw, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	var rep struct {
		Remaps []struct {
			From int64 `yaml:"from"`
			To   int64 `yaml:"to"`
		} `yaml:"remaps"`
		Views []string `yaml:"views"`
	}
	if err := yaml.Unmarshal(raw, &rep); err != nil {
		t.Fatal(err)
	}
	if len(rep.Remaps) != 1 || rep.Remaps[0].From != 2 || rep.Remaps[0].To != 1 {
		t.Fatalf("remaps=%+v", rep.Remaps)
	}
	if len(rep.Views) != 5 {
		t.Fatalf("views=%v", rep.Views)
	}
}

func TestRunMain_MissingInputFails(t *testing.T) {
	dir := t.TempDir()
	args := []string{"-config", writeConfig(t, dir), "-backend", "sqlite", "-dsn", filepath.Join(dir, "dw.db")}

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), args, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code=%d, want 1; stderr=%q", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "load:") {
		t.Fatalf("stderr=%q", stderr.String())
	}
}
