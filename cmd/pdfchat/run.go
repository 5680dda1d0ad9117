package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pdfchat/internal/config"
	"pdfchat/internal/integrations/backend"
	"pdfchat/internal/repository"
	"pdfchat/internal/usecase"
	"pdfchat/internal/watcher"
)

func defaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "pdfchat", "config.yaml")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, err
	}
	if serverURL != "" {
		cfg.BackendURL = serverURL
	}
	if timeoutStr != "" {
		d, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return config.Config{}, fmt.Errorf("parse --timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	return cfg, nil
}

// newService wires the backend client, identity store, and session controller,
// and runs the startup init (identifier acquisition + restore).
func newService(ctx context.Context) (*usecase.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := backend.NewClient(
		backend.WithBaseURL(cfg.BackendURL),
		backend.WithTimeout(cfg.RequestTimeout),
	)
	store, err := repository.New(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	svc, err := usecase.NewService(client, store, usecase.WithConfirm(confirmPrompt))
	if err != nil {
		return nil, err
	}
	if err := svc.Init(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func confirmPrompt(prompt string) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "y" || answer == "yes"
}

// failureMessage turns a controller error into the line shown to the user.
func failureMessage(err error) string {
	var uerr *usecase.Error
	if errors.As(err, &uerr) {
		switch uerr.Reason {
		case "not_pdf":
			return "Please upload a PDF file!"
		case "no_session":
			return "Session not initialized."
		case "no_files":
			return "Please upload at least one PDF file first!"
		case "empty_question":
			return "Type a question first."
		case "question_pending":
			return "Still thinking about the previous question."
		case "upload_in_flight":
			return "An upload is already in progress."
		case "bad_index":
			return "No such file."
		}
		if uerr.Code == usecase.ErrorConnection {
			return "Backend connection failed! Make sure the server is running."
		}
		if d := usecase.BackendDetail(err); d != "" {
			return d
		}
	}
	return err.Error()
}

func runUpload(ctx context.Context, paths []string) error {
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	var failed bool
	for _, path := range paths {
		if err := uploadPath(ctx, svc, path); err != nil {
			fmt.Printf("❌ Upload failed: %s\n", failureMessage(err))
			failed = true
			continue
		}
		fmt.Printf("✅ %s uploaded\n", filepath.Base(path))
	}
	if failed {
		return errors.New("not all uploads succeeded")
	}
	return nil
}

func uploadPath(ctx context.Context, svc *usecase.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return svc.Upload(ctx, filepath.Base(path), f)
}

func runFiles(ctx context.Context) error {
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	printFiles(svc)
	return nil
}

func printFiles(svc *usecase.Service) {
	files := svc.Files()
	if len(files) == 0 {
		fmt.Println("No files uploaded yet.")
		return
	}
	for i, name := range files {
		fmt.Printf("%3d  %s\n", i+1, name)
	}
}

func runRemove(ctx context.Context, name string) error {
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	index := -1
	for i, f := range svc.Files() {
		if f == name {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("no such file: %s", name)
	}
	if err := svc.Remove(ctx, name, index); err != nil {
		return fmt.Errorf("❌ Failed to delete file: %s", failureMessage(err))
	}
	fmt.Printf("✅ Deleted %s\n", name)
	return nil
}

func runAsk(ctx context.Context, args []string) error {
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	msg, err := svc.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return errors.New(failureMessage(err))
	}
	fmt.Println(msg.Answer)
	return nil
}

func runReset(ctx context.Context) error {
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	cleared, err := svc.Reset(ctx)
	if err != nil {
		return fmt.Errorf("❌ Failed to reset conversation: %s", failureMessage(err))
	}
	if cleared {
		fmt.Println("✅ Conversation and files cleared.")
	}
	return nil
}

func runWatch(ctx context.Context, dir string) error {
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	w, err := watcher.New(svc)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Watch(ctx, dir); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runChat(ctx context.Context) error {
	svc, err := newService(ctx)
	if err != nil {
		return err
	}

	files := svc.Files()
	messages := svc.Messages()
	fmt.Printf("Session %s: %d document(s), %d message(s)\n", svc.SessionID(), len(files), len(messages))
	for _, m := range messages {
		fmt.Printf("you> %s\n%s\n\n", m.Question, m.Answer)
	}
	fmt.Println(`Type a question, or /help for commands.`)

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := chatCommand(ctx, svc, line); quit {
				return nil
			}
			continue
		}

		msg, err := svc.Ask(ctx, line)
		if err != nil {
			fmt.Println(failureMessage(err))
			continue
		}
		fmt.Printf("%s\n\n", msg.Answer)
	}
}

// chatCommand handles a slash command; it returns true when the REPL should
// exit.
func chatCommand(ctx context.Context, svc *usecase.Service, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println(`/files            list uploaded documents
/upload <path>    upload a PDF
/rm <number>      delete a document by list number
/reset            clear conversation and files
/quit             leave`)
	case "/files":
		printFiles(svc)
	case "/upload":
		if arg == "" {
			fmt.Println("usage: /upload <path>")
			break
		}
		if err := uploadPath(ctx, svc, arg); err != nil {
			fmt.Printf("❌ Upload failed: %s\n", failureMessage(err))
			break
		}
		fmt.Printf("✅ %s uploaded\n", filepath.Base(arg))
	case "/rm":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			fmt.Println("usage: /rm <number> (see /files)")
			break
		}
		files := svc.Files()
		if n > len(files) {
			fmt.Println("No such file.")
			break
		}
		name := files[n-1]
		if err := svc.Remove(ctx, name, n-1); err != nil {
			fmt.Printf("❌ Failed to delete file: %s\n", failureMessage(err))
			break
		}
		fmt.Printf("✅ Deleted %s\n", name)
	case "/reset":
		cleared, err := svc.Reset(ctx)
		if err != nil {
			fmt.Printf("❌ Failed to reset conversation: %s\n", failureMessage(err))
			break
		}
		if cleared {
			fmt.Println("✅ Conversation and files cleared.")
		}
	default:
		fmt.Println("Unknown command; /help lists them.")
	}
	return false
}
