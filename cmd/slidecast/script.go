package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/script"
	"github.com/ivlev/slidecast/internal/system"
	"github.com/ivlev/slidecast/internal/timing"
)

func openEditor(ctx context.Context, cfg *config.Config, src *sourceFlags) (*app, *deck, *script.Editor, error) {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := src.open(ctx, cfg, a.log)
	if err != nil {
		a.close()
		return nil, nil, nil, err
	}
	return a, d, script.NewEditor(a.store, d.owner, d.mode, d.ordinals(), a.log), nil
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	var src sourceFlags
	src.register(fs)
	out := fs.String("o", "", "Файл скрипта (по умолчанию stdout)")
	qr := fs.String("qr", "", "Дополнительно сохранить скрипт как QR-код (PNG)")
	qrSize := fs.Int("qr-size", 512, "Размер QR-кода в пикселях")
	if err := setup(cfg, fs, args); err != nil {
		return err
	}

	a, d, editor, err := openEditor(ctx, cfg, &src)
	if err != nil {
		return err
	}
	defer a.close()
	defer d.close()

	text, err := editor.Export(ctx)
	if err != nil {
		return err
	}

	if *out == "" {
		fmt.Print(text)
	} else {
		if err := os.WriteFile(*out, []byte(text), 0644); err != nil {
			return err
		}
		fmt.Printf("[+++] Скрипт сохранён: %s\n", *out)
	}

	if *qr != "" {
		if err := system.WriteQR(text, *qr, *qrSize); err != nil {
			return err
		}
		fmt.Printf("[+++] QR-код сохранён: %s\n", *qr)
	}
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	var src sourceFlags
	src.register(fs)
	in := fs.String("i", "", "Файл скрипта (по умолчанию самый свежий .txt/.timing в текущей папке)")
	yes := fs.Bool("yes", false, "Не спрашивать подтверждение при несовпадении числа строк")
	if err := setup(cfg, fs, args); err != nil {
		return err
	}

	path := *in
	if path == "" {
		latest, err := system.FindLatest(".", system.ScriptExtensions...)
		if err != nil {
			return err
		}
		path = latest
		fmt.Printf("[*] Выбран файл: %s\n", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	a, d, editor, err := openEditor(ctx, cfg, &src)
	if err != nil {
		return err
	}
	defer a.close()
	defer d.close()

	plan, err := editor.Commit(ctx, string(data), *yes)
	if errors.Is(err, timing.ErrConfirmationRequired) {
		fmt.Printf("[!] В скрипте %d строк, в базе %d переходов. Сохранить? [y/N] ", plan.ParsedCount, plan.OriginalCount)
		if !confirm() {
			fmt.Println("[*] Отменено")
			return nil
		}
		plan, err = editor.Commit(ctx, string(data), true)
	}
	var fe *timing.FormatError
	if errors.As(err, &fe) {
		return fmt.Errorf("%s:%d: %q: %w", path, fe.Line, fe.Text, fe.Err)
	}
	if err != nil {
		return err
	}
	fmt.Printf("[+++] Импортировано переходов: %d\n", len(plan.Entries))
	return nil
}

func confirm() bool {
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "д", "да":
		return true
	}
	return false
}

func runShow(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	if err := setup(cfg, fs, args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	owners, err := a.store.ListOwners(ctx)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		fmt.Println("[*] База пуста")
		return nil
	}
	fmt.Printf("%-10s %-10s %8s %10s\n", "ВЛАДЕЛЕЦ", "РЕЖИМ", "ПЕРЕХОДЫ", "СЕКУНДЫ")
	for _, o := range owners {
		fmt.Printf("%-10d %-10s %8d %10.1f\n", o.OwnerID, o.Mode, o.Entries, o.TotalDuration)
	}
	return nil
}
