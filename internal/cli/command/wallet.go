package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/micropay-go/internal/cli/output"
	"github.com/yndnr/micropay-go/internal/cli/repl"
	"github.com/yndnr/micropay-go/internal/client"
	"github.com/yndnr/micropay-go/internal/core/domain"
)

const logoutTimeout = 5 * time.Second

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Interactive wallet shell (default)",
		Action: shell,
	}
}

// RegisterCommand returns the register command.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "Create an account",
		ArgsUsage: "USER [AMOUNT]",
		Action:    register,
	}
}

// BalanceCommand returns the balance command.
func BalanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Aliases:   []string{"list"},
		Usage:     "Log in, show balance and online users, log out",
		ArgsUsage: "USER",
		Action:    balance,
	}
}

// TransferCommand returns the transfer command.
func TransferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Log in, pay an online user, show the refreshed balance, log out",
		ArgsUsage: "USER TO AMOUNT",
		Action:    transfer,
	}
}

// PeersCommand returns the peers command.
func PeersCommand() *cli.Command {
	return &cli.Command{
		Name:      "peers",
		Usage:     "Log in, show online users with their addresses, log out",
		ArgsUsage: "USER",
		Action:    peers,
	}
}

func shell(c *cli.Context) error {
	env := GetEnv(c)

	history := repl.NewHistory(repl.DefaultHistoryPath(), repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		env.Logger.Warn("history not loaded", "error", err)
	}

	var sh *repl.REPL
	w := client.New(env.Config.WalletConfig(),
		client.WithLogger(env.Logger),
		client.WithNotifier(func(ev client.Event) { sh.Notify(ev) }),
	)
	sh = repl.New(w,
		repl.WithIO(c.App.Reader, c.App.Writer),
		repl.WithFormatter(env.Formatter),
		repl.WithHistory(history),
		repl.WithTimeout(env.Config.Transfer.Timeout),
	)

	if err := w.Open(c.Context); err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(c.App.Writer, "Connected to %s, accepting transfers on port %d.\n",
		env.Config.Server.Addr, w.ListenPort())
	return sh.Run(c.Context)
}

func register(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("usage: register USER [AMOUNT]", 2)
	}
	user := c.Args().Get(0)
	deposit := int64(-1)
	if c.NArg() == 2 {
		v, err := strconv.ParseInt(c.Args().Get(1), 10, 64)
		if err != nil || v < 0 {
			return domain.ErrInvalidAmount.WithDetails(c.Args().Get(1))
		}
		deposit = v
	}

	return withWallet(c, "", func(ctx context.Context, w *client.Wallet) error {
		if err := w.Register(ctx, user, deposit); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Registered %s.\n", user)
		return nil
	})
}

func balance(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: balance USER", 2)
	}
	user := c.Args().First()

	return withWallet(c, user, func(ctx context.Context, w *client.Wallet) error {
		snap, err := w.List(ctx)
		if err != nil {
			return err
		}
		return GetEnv(c).Formatter.Format(c.App.Writer, output.SnapshotView{Username: user, Snapshot: snap})
	})
}

func transfer(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("usage: transfer USER TO AMOUNT", 2)
	}
	user, to := c.Args().Get(0), c.Args().Get(1)
	amount, err := strconv.ParseInt(c.Args().Get(2), 10, 64)
	if err != nil {
		return domain.ErrInvalidAmount.WithDetails(c.Args().Get(2))
	}

	return withWallet(c, user, func(ctx context.Context, w *client.Wallet) error {
		snap, err := w.TransferAndRefresh(ctx, to, amount)
		var refreshErr *client.RefreshError
		if err != nil && !errors.As(err, &refreshErr) {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Sent %d to %s.\n", amount, to)
		if err != nil {
			return err
		}
		return GetEnv(c).Formatter.Format(c.App.Writer, output.SnapshotView{Username: user, Snapshot: snap})
	})
}

func peers(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: peers USER", 2)
	}

	return withWallet(c, c.Args().First(), func(ctx context.Context, w *client.Wallet) error {
		return GetEnv(c).Formatter.Format(c.App.Writer, output.PeersView(w.Peers()))
	})
}

// withWallet opens a wallet, logs in as user unless user is empty, runs
// fn and logs out again. The transfer timeout bounds the whole run.
func withWallet(c *cli.Context, user string, fn func(context.Context, *client.Wallet) error) error {
	env := GetEnv(c)
	ctx := c.Context
	if d := env.Config.Transfer.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d+env.Config.Transfer.RefreshDelay)
		defer cancel()
	}

	w := client.New(env.Config.WalletConfig(), client.WithLogger(env.Logger))
	if err := w.Open(ctx); err != nil {
		return err
	}
	defer w.Close()

	if user != "" {
		if _, err := w.Login(ctx, user); err != nil {
			return err
		}
		defer func() {
			logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
			defer cancel()
			if err := w.Logout(logoutCtx); err != nil {
				env.Logger.Debug("logout failed", "error", err)
			}
		}()
	}
	return fn(ctx, w)
}
