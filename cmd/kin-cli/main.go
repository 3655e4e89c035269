// kin-cli is a command-line wallet for the Kin token.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/DebuggerAu/kin-sdk-core/config"
	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kin"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/DebuggerAu/kin-sdk-core/pkg/units"
	"golang.org/x/term"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if flags.Help {
			return
		}
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal("%v", err)
	}

	// Logs go to stderr at warn unless asked otherwise, so command output stays clean.
	level := cfg.Log.Level
	if !flags.IsSet("log.level") {
		level = "warn"
	}
	if err := klog.Init(level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	if cmd == "init" {
		cmdInit(cfg)
		return
	}
	if cmd == "help" {
		usage()
		return
	}

	if err := os.MkdirAll(cfg.NetworkDataDir(), 0700); err != nil {
		fatal("create data dir: %v", err)
	}
	client, err := kin.New(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "account":
		cmdAccount(client, cmdArgs)
	case "balance":
		cmdBalance(ctx, client, cmdArgs)
	case "pending":
		cmdPending(ctx, client, cmdArgs)
	case "send":
		cmdSend(ctx, client, cmdArgs)
	case "token":
		cmdToken(ctx, client)
	case "status":
		cmdStatus(ctx, client)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		client.Close()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: kin-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         Ledger node JSON-RPC endpoint
  --datadir <path>    Data directory (default: ~/.kin)
  --network <net>     mainnet or testnet (default: testnet)
  --testnet           Shorthand for --network=testnet
  --config <file>     Config file (default: <datadir>/kin.conf)
  --env <file>        Dotenv file with KIN_* settings (default: .env)
  --light             Cheaper key derivation for new or re-sealed keys
  --log-level <lvl>   debug, info, warn, error or off (default: warn)
  --log-file <file>   Also append JSON logs to this file
  --log-json          JSON instead of colored console logs

Commands:
  init                            Write a default config file
  status                          Check the node serves the configured network

  account create --name <n> [--mnemonic]
                                  Create a new account, optionally from a
                                  new recovery phrase
  account import --name <n> --key <hex>
                                  Import a raw private key
  account import --name <n> --mnemonic "..." [--index <i>]
                                  Import the key at m/44'/60'/0'/0/<i>
  account list                    List accounts
  account passwd --account <a>    Change an account's passphrase
  account delete --account <a>    Delete an account's key

  balance --account <a>           Show confirmed balance
  pending --account <a>           Show balance less unconfirmed transfers
  pending --clear                 Forget tracked unconfirmed transfers
  send --account <a> --to <addr> --amount <amt>
                                  Transfer tokens
  token                           Show token contract metadata
`)
}

// ── init ────────────────────────────────────────────────────────────────

func cmdInit(cfg *config.Config) {
	path := cfg.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		fatal("config already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		fatal("create data dir: %v", err)
	}
	if err := config.WriteDefaultConfig(path, cfg.Network); err != nil {
		fatal("write config: %v", err)
	}
	fmt.Printf("Config written: %s\n", path)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(ctx context.Context, client *kin.Client) {
	params := client.Network()
	fmt.Printf("Network:  %s\n", params.Network)
	fmt.Printf("Chain ID: %d\n", params.ChainID)
	fmt.Printf("Contract: %s\n", params.ContractAddress.Hex())
	if err := client.CheckNetwork(ctx); err != nil {
		fatalErr(err)
	}
	fmt.Println("Node:     ok")
}

// ── account ─────────────────────────────────────────────────────────────

func cmdAccount(client *kin.Client, args []string) {
	if len(args) == 0 {
		fatal("Usage: kin-cli account <create|import|list|passwd|delete>")
	}
	switch args[0] {
	case "create":
		cmdAccountCreate(client, args[1:])
	case "import":
		cmdAccountImport(client, args[1:])
	case "list":
		cmdAccountList(client)
	case "passwd":
		cmdAccountPasswd(client, args[1:])
	case "delete":
		cmdAccountDelete(client, args[1:])
	default:
		fatal("unknown account command: %s", args[0])
	}
}

func cmdAccountCreate(client *kin.Client, args []string) {
	fs := flag.NewFlagSet("account create", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	withMnemonic := fs.Bool("mnemonic", false, "Derive the key from a new 24-word recovery phrase")
	fs.Parse(args)

	if !*withMnemonic {
		password := readNewPassword()
		acct, err := client.CreateAccount(*name, password)
		if err != nil {
			fatalErr(err)
		}
		fmt.Printf("Account created: %s\n", acct.Address.Hex())
		return
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	password := readNewPassword()
	acct, err := client.ImportMnemonic(*name, mnemonic, "", 0, password)
	if err != nil {
		fatalErr(err)
	}
	fmt.Printf("Account created: %s\n\n", acct.Address.Hex())
	fmt.Println("Recovery phrase (write it down, it is not stored and will not be shown again):")
	fmt.Printf("\n  %s\n\n", mnemonic)
}

func cmdAccountImport(client *kin.Client, args []string) {
	fs := flag.NewFlagSet("account import", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	keyHex := fs.String("key", "", "Private key (hex)")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	mnemonicPass := fs.String("mnemonic-passphrase", "", "Optional BIP-39 passphrase")
	index := fs.Uint("index", 0, "Address index under m/44'/60'/0'/0")
	fs.Parse(args)

	if (*keyHex == "") == (*mnemonic == "") {
		fatal("Usage: kin-cli account import --name <n> (--key <hex> | --mnemonic \"...\" [--index <i>])")
	}

	var (
		acct kin.Account
		err  error
	)
	if *keyHex != "" {
		key, decErr := hex.DecodeString(strings.TrimPrefix(*keyHex, "0x"))
		if decErr != nil {
			fatal("invalid key: %v", decErr)
		}
		password := readNewPassword()
		acct, err = client.ImportAccount(*name, key, password)
		for i := range key {
			key[i] = 0
		}
	} else {
		if !wallet.ValidateMnemonic(*mnemonic) {
			fatal("invalid mnemonic")
		}
		password := readNewPassword()
		acct, err = client.ImportMnemonic(*name, *mnemonic, *mnemonicPass, uint32(*index), password)
	}
	if err != nil {
		fatalErr(err)
	}
	fmt.Printf("Account imported: %s\n", acct.Address.Hex())
}

func cmdAccountList(client *kin.Client) {
	accounts, err := client.Accounts()
	if err != nil {
		fatalErr(err)
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return
	}
	for _, a := range accounts {
		if a.Name != "" {
			fmt.Printf("%s  %s\n", a.Address.Hex(), a.Name)
		} else {
			fmt.Println(a.Address.Hex())
		}
	}
}

func cmdAccountPasswd(client *kin.Client, args []string) {
	fs := flag.NewFlagSet("account passwd", flag.ExitOnError)
	ref := fs.String("account", "", "Account address")
	fs.Parse(args)

	acct := mustAccount(client, *ref, "Usage: kin-cli account passwd --account <addr>")
	oldPass, err := readPassword("Current password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	newPass := readNewPassword()
	if err := client.ChangePassphrase(acct.Ref, oldPass, newPass); err != nil {
		fatalErr(err)
	}
	fmt.Println("Passphrase changed.")
}

func cmdAccountDelete(client *kin.Client, args []string) {
	fs := flag.NewFlagSet("account delete", flag.ExitOnError)
	ref := fs.String("account", "", "Account address")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	fs.Parse(args)

	acct := mustAccount(client, *ref, "Usage: kin-cli account delete --account <addr> [--yes]")
	if !*yes {
		fmt.Fprintf(os.Stderr, "Delete %s? Funds are lost without a backup. Type 'yes': ", acct.Address.Hex())
		var answer string
		fmt.Scanln(&answer)
		if answer != "yes" {
			fatal("aborted")
		}
	}
	if err := client.DeleteAccount(acct.Ref); err != nil {
		fatalErr(err)
	}
	fmt.Printf("Account deleted: %s\n", acct.Address.Hex())
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(ctx context.Context, client *kin.Client, args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	ref := fs.String("account", "", "Account address")
	fs.Parse(args)

	acct := mustAccount(client, *ref, "Usage: kin-cli balance --account <addr>")
	bal, err := client.GetBalance(ctx, acct)
	if err != nil {
		fatalErr(err)
	}
	fmt.Printf("Balance: %s KIN (block %d)\n", units.FormatAmount(bal.Amount), bal.Block)
}

func cmdPending(ctx context.Context, client *kin.Client, args []string) {
	fs := flag.NewFlagSet("pending", flag.ExitOnError)
	ref := fs.String("account", "", "Account address")
	clearAll := fs.Bool("clear", false, "Forget all tracked unconfirmed transfers")
	fs.Parse(args)

	if *clearAll {
		if err := client.ClearPending(); err != nil {
			fatalErr(err)
		}
		fmt.Println("Pending transfers cleared.")
		return
	}

	acct := mustAccount(client, *ref, "Usage: kin-cli pending --account <addr> [--clear]")
	pb, err := client.GetPendingBalance(ctx, acct)
	if err != nil {
		fatalErr(err)
	}
	fmt.Printf("Confirmed: %s KIN (block %d)\n", units.FormatAmount(pb.Confirmed.Amount), pb.Confirmed.Block)
	fmt.Printf("Pending:   %s KIN\n", units.FormatBaseUnits(pb.Pending))
	fmt.Printf("Available: %s KIN\n", units.FormatAmount(pb.Amount))
	if pb.Drift {
		fmt.Fprintln(os.Stderr, "Warning: unconfirmed transfers exceed the confirmed balance; "+
			"this account may have been used from another wallet.")
	}
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(ctx context.Context, client *kin.Client, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	ref := fs.String("account", "", "Sending account address")
	to := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount in KIN (e.g. 1.5)")
	fs.Parse(args)

	if *to == "" || *amountStr == "" {
		fatal("Usage: kin-cli send --account <addr> --to <addr> --amount <amt>")
	}
	acct := mustAccount(client, *ref, "Usage: kin-cli send --account <addr> --to <addr> --amount <amt>")

	amount, err := units.ParseAmount(*amountStr)
	if err != nil {
		fatalErr(err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	defer func() {
		for i := range password {
			password[i] = 0
		}
	}()

	id, err := client.Transfer(ctx, kin.TransferRequest{
		From:       acct,
		Passphrase: password,
		To:         *to,
		Amount:     amount,
	})
	if err != nil {
		fatalErr(err)
	}
	fmt.Printf("Submitted: %s\n", id)
}

// ── token ───────────────────────────────────────────────────────────────

func cmdToken(ctx context.Context, client *kin.Client) {
	info, err := client.TokenInfo(ctx)
	if err != nil {
		fatalErr(err)
	}
	fmt.Printf("Contract:     %s\n", info.Address)
	fmt.Printf("Name:         %s\n", info.Name)
	fmt.Printf("Symbol:       %s\n", info.Symbol)
	fmt.Printf("Decimals:     %d\n", info.Decimals)
	fmt.Printf("Total supply: %s\n", units.FormatAmount(info.TotalSupply))
}

// ── helpers ─────────────────────────────────────────────────────────────

func mustAccount(client *kin.Client, ref, usageLine string) kin.Account {
	if ref == "" {
		accounts, err := client.Accounts()
		if err != nil {
			fatalErr(err)
		}
		if len(accounts) != 1 {
			fatal("%s", usageLine)
		}
		return accounts[0]
	}
	acct, err := client.Account(ref)
	if err != nil {
		fatalErr(err)
	}
	return acct
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func readNewPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}
	return password
}

// fatalErr prints err with a hint for the kinds a user can act on.
func fatalErr(err error) {
	var hint string
	switch kinerr.KindOf(err) {
	case kinerr.Passphrase:
		hint = "check the password"
	case kinerr.InsufficientBalance:
		hint = "the confirmed balance is too low"
	case kinerr.Conversion:
		hint = "amounts have at most 18 decimal places"
	}
	if hint == "" && errors.Is(err, kinerr.ErrConnectivity) {
		hint = "is the node running? see --rpc"
	}
	if hint != "" {
		fatal("%v (%s)", err, hint)
	}
	fatal("%v", err)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
