package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

func (a *App) Me(ctx context.Context) error {
	info, err := a.account.GetMyInfo(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return err
	}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	return nil
}

func (a *App) History(ctx context.Context) error {
	history, err := a.account.GetReadHistory(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(a.out, "Reading history is empty")
		return nil
	}
	for i, item := range history {
		fmt.Fprintf(a.out, "%d. %s\n", i+1, item)
	}
	return nil
}

func (a *App) Shelf(ctx context.Context) error {
	shelf, err := a.account.GetBookShelf(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, shelf.Data, "", "  "); err != nil {
		return fmt.Errorf("format shelf: %w", err)
	}
	fmt.Fprintf(a.out, "shelf version: %d\n%s\n", shelf.Ver, buf.String())
	return nil
}

func (a *App) ClearHistory(ctx context.Context) error {
	if err := a.account.ClearHistory(ctx); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Reading history cleared")
	return nil
}

func (a *App) Avatar(ctx context.Context) error {
	url, err := getSimpleText(a.reader, "Enter avatar URL", a.out)
	if err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("avatar url is required")
	}
	if err := a.account.SetAvatar(ctx, url); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Avatar updated")
	return nil
}
