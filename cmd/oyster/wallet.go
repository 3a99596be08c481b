package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/PaulSpaurgen/interface-v2/internal/contract"
	"github.com/PaulSpaurgen/interface-v2/internal/conversion"
	"github.com/PaulSpaurgen/interface-v2/wallet"
)

var walletCmd = &cli.Command{
	Name:  "wallet",
	Usage: "Manage wallets",
	Subcommands: []*cli.Command{
		walletNew,
		walletList,
		walletExport,
		walletImport,
		walletDelete,
		walletSign,
		walletVerify,
	},
}

func setupWallet(cctx *cli.Context) (*wallet.LocalWallet, error) {
	if _, err := repoPath(cctx); err != nil {
		return nil, err
	}
	return wallet.SetupWallet(wallet.WalletRepo)
}

var walletNew = &cli.Command{
	Name:  "new",
	Usage: "Generate a new key",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		localWallet, err := setupWallet(cctx)
		if err != nil {
			return err
		}
		addr, err := localWallet.WalletNew(ctx)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	},
}

var walletList = &cli.Command{
	Name:  "list",
	Usage: "List wallet addresses with their balances on the configured chain",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		n, err := loadNode(cctx)
		if err != nil {
			return err
		}
		defer n.close()
		localWallet, err := wallet.SetupWallet(wallet.WalletRepo)
		if err != nil {
			return err
		}

		client, err := ethclient.DialContext(ctx, n.cfg.CHAIN.Rpc)
		if err != nil {
			return fmt.Errorf("failed to dial rpc %s, error: %+v", n.cfg.CHAIN.Rpc, err)
		}
		defer client.Close()
		token, err := contract.NewOysterStub(client, n.chain.ContractAddresses.Oyster, n.chain.ContractAddresses.USDC)
		if err != nil {
			return err
		}

		accounts, err := localWallet.WalletList(ctx, client, token)
		if err != nil {
			return err
		}

		tokenMd := n.token()
		var data [][]string
		var rowColorList []RowColor
		for i, account := range accounts {
			var marker string
			if strings.EqualFold(account.Address, n.owner()) {
				marker = "*"
				rowColorList = append(rowColorList, RowColor{
					row:    i,
					column: []int{0},
					color:  []tablewriter.Colors{{tablewriter.Bold, tablewriter.FgGreenColor}},
				})
			}
			data = append(data, []string{
				account.Address + marker,
				conversion.BigIntToString(account.Balance, 18, 6) + " ETH",
				conversion.BigIntToString(account.TokenBalance, tokenMd.Decimals, tokenMd.Precision) + " " + tokenMd.Symbol,
				fmt.Sprintf("%d", account.Nonce),
				account.Error,
			})
		}

		header := []string{"Address", "Balance", "Token", "Nonce", "Error"}
		NewVisualTable(header, data, rowColorList).Generate()
		return nil
	},
}

var walletExport = &cli.Command{
	Name:      "export",
	Usage:     "export keys",
	ArgsUsage: "[address]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		if !cctx.Args().Present() {
			return fmt.Errorf("must specify key to export")
		}
		localWallet, err := setupWallet(cctx)
		if err != nil {
			return err
		}

		ki, err := localWallet.WalletExport(ctx, cctx.Args().First())
		if err != nil {
			return err
		}
		fmt.Println(ki.PrivateKey)
		return nil
	},
}

var walletImport = &cli.Command{
	Name:      "import",
	Usage:     "import keys",
	ArgsUsage: "[<path> (optional, will read from stdin if omitted)]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		localWallet, err := setupWallet(cctx)
		if err != nil {
			return err
		}

		var inpdata []byte
		if !cctx.Args().Present() || cctx.Args().First() == "-" {
			reader := bufio.NewReader(os.Stdin)
			fmt.Print("Enter private key: ")
			indata, err := reader.ReadBytes('\n')
			if err != nil {
				return err
			}
			inpdata = indata
		} else {
			fdata, err := os.ReadFile(cctx.Args().First())
			if err != nil {
				return err
			}
			inpdata = fdata
		}

		addr, err := localWallet.WalletImport(ctx, &wallet.KeyInfo{PrivateKey: string(inpdata)})
		if err != nil {
			return err
		}
		printDone("imported key %s successfully!", addr)
		return nil
	},
}

var walletDelete = &cli.Command{
	Name:      "delete",
	Usage:     "Delete an account from the wallet",
	ArgsUsage: "<address> ",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		if !cctx.Args().Present() || cctx.NArg() != 1 {
			return fmt.Errorf("must specify address to delete")
		}
		localWallet, err := setupWallet(cctx)
		if err != nil {
			return err
		}
		return localWallet.WalletDelete(ctx, cctx.Args().First())
	},
}

var walletSign = &cli.Command{
	Name:      "sign",
	Usage:     "Sign a message",
	ArgsUsage: "<signing address> <Message>",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		if !cctx.Args().Present() || cctx.NArg() != 2 {
			return fmt.Errorf("must specify signing address and message to sign")
		}
		msg := cctx.Args().Get(1)
		if strings.TrimSpace(msg) == "" {
			return fmt.Errorf("failed to parse message")
		}
		localWallet, err := setupWallet(cctx)
		if err != nil {
			return err
		}

		sig, err := localWallet.WalletSign(ctx, cctx.Args().First(), []byte(msg))
		if err != nil {
			return err
		}
		fmt.Println(sig)
		return nil
	},
}

var walletVerify = &cli.Command{
	Name:      "verify",
	Usage:     "verify the signature of a message",
	ArgsUsage: "<signing address>  <signature> <rawMessage>",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		if cctx.NArg() != 3 {
			return fmt.Errorf("incorrect number of arguments, requires 3 parameters")
		}

		sigBytes, err := hexutil.Decode(cctx.Args().Get(1))
		if err != nil {
			return err
		}
		messageData := cctx.Args().Get(2)
		if strings.TrimSpace(messageData) == "" {
			return fmt.Errorf("failed to get raw message")
		}

		localWallet, err := setupWallet(cctx)
		if err != nil {
			return err
		}
		pass, err := localWallet.WalletVerify(ctx, cctx.Args().First(), sigBytes, messageData)
		if err != nil {
			return err
		}
		if !pass {
			red.Println(pass)
			return nil
		}
		fmt.Println(pass)
		return nil
	},
}
