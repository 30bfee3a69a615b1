package cli

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/classmint/internal/api"
)

func issueCommand(a *App) *cobra.Command {
	var (
		amount      int64
		ttl         int64
		oneTime     bool
		description string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a reward token (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.call(cmd.Context(), api.MethodIssueToken, map[string]any{
				api.FieldAmount:      amount,
				api.FieldTTLSeconds:  ttl,
				api.FieldOneTime:     oneTime,
				api.FieldDescription: description,
			})
			if err != nil {
				return err
			}
			return a.renderFields(
				[]string{"Token ID", itoa(num(out, api.FieldTokenID))},
				[]string{"Expires", unixTime(num(out, api.FieldExpiresAt))},
				[]string{"Token", str(out, api.FieldToken)},
			)
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "reward amount in minor units")
	cmd.Flags().Int64Var(&ttl, "ttl", 7*24*3600, "validity in seconds")
	cmd.Flags().BoolVar(&oneTime, "one-time", true, "token can be redeemed once")
	cmd.Flags().StringVar(&description, "description", "", "shown to the claimer")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func redeemCommand(a *App) *cobra.Command {
	var claimer string
	cmd := &cobra.Command{
		Use:   "redeem TOKEN",
		Short: "Redeem a reward token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]any{api.FieldToken: args[0]}
			if claimer != "" {
				fields[api.FieldClaimer] = claimer
			}
			out, err := a.call(cmd.Context(), api.MethodRedeemToken, fields)
			if err != nil {
				return err
			}
			return a.renderFields(
				[]string{"Claim ID", itoa(num(out, api.FieldClaimID))},
				[]string{"Amount", itoa(num(out, api.FieldAmount))},
				[]string{"Description", str(out, api.FieldDescription)},
				[]string{"Block", itoa(num(out, api.FieldBlockID))},
				[]string{"Block hash", str(out, api.FieldBlockHash)},
			)
		},
	}
	cmd.Flags().StringVar(&claimer, "claimer", "", "who is claiming the reward")
	return cmd
}

func voidCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "void TOKEN_ID",
		Short: "Void an active token (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("token id: %w", err)
			}
			if _, err := a.call(cmd.Context(), api.MethodVoidToken, map[string]any{api.FieldTokenID: id}); err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, pterm.Success.Sprintf("token %d voided", id))
			return err
		},
	}
}

func verifyCommand(a *App) *cobra.Command {
	var (
		fromBlock int64
		fromHash  string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the ledger hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]any{}
			if fromBlock > 0 {
				fields[api.FieldCheckpoint] = map[string]any{
					api.FieldBlockID: fromBlock,
					api.FieldHash:    fromHash,
				}
			}
			out, err := a.call(cmd.Context(), api.MethodVerifyLedger, fields)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"OK", strconv.FormatBool(boolean(out, api.FieldOK))},
				{"Length", itoa(num(out, api.FieldLength))},
				{"Final hash", str(out, api.FieldFinalHash)},
			}
			if !boolean(out, api.FieldOK) {
				rows = append(rows,
					[]string{"Broken at", itoa(num(out, api.FieldBrokenAt))},
					[]string{"Expected", str(out, api.FieldExpected)},
					[]string{"Actual", str(out, api.FieldActual)},
				)
			}
			if m := out.GetFields()[api.FieldMalformed].GetListValue().GetValues(); len(m) > 0 {
				ids := make([]string, 0, len(m))
				for _, v := range m {
					ids = append(ids, itoa(int64(v.GetNumberValue())))
				}
				rows = append(rows, []string{"Malformed", fmt.Sprint(ids)})
			}
			if err := a.renderFields(rows...); err != nil {
				return err
			}
			if !boolean(out, api.FieldOK) {
				return fmt.Errorf("ledger integrity broken at block %d", num(out, api.FieldBrokenAt))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&fromBlock, "from-block", 0, "verify from a trusted checkpoint block id")
	cmd.Flags().StringVar(&fromHash, "from-hash", "", "record hash of the checkpoint block")
	cmd.MarkFlagsRequiredTogether("from-block", "from-hash")
	return cmd
}

func statusCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger totals and the latest blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.call(cmd.Context(), api.MethodLedgerStatus, nil)
			if err != nil {
				return err
			}
			if err := a.renderFields(
				[]string{"Blocks", itoa(num(out, api.FieldTotalBlocks))},
				[]string{"Claims", itoa(num(out, api.FieldTotalClaims))},
				[]string{"Amount", itoa(num(out, api.FieldTotalAmount))},
			); err != nil {
				return err
			}

			rows := pterm.TableData{{"Block", "Tx", "Claimer", "Amount", "Hash", "Created"}}
			for _, b := range list(out, api.FieldRecentBlocks) {
				tx := "-"
				if hasNumber(b, api.FieldTxID) {
					tx = itoa(num(b, api.FieldTxID))
				}
				rows = append(rows, []string{
					itoa(num(b, api.FieldID)),
					tx,
					str(b, api.FieldClaimer),
					itoa(num(b, api.FieldAmount)),
					shortHash(str(b, api.FieldRecordHash)),
					unixTime(num(b, api.FieldCreatedAt)),
				})
			}
			return a.renderTable(true, rows)
		},
	}
}

func statsCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show token and claim totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.call(cmd.Context(), api.MethodStats, nil)
			if err != nil {
				return err
			}
			return a.renderFields(
				[]string{"Tokens", itoa(num(out, api.FieldTotalTokens))},
				[]string{"Active amount", itoa(num(out, api.FieldActiveAmount))},
				[]string{"Claims", itoa(num(out, api.FieldTotalClaims))},
				[]string{"Chain length", itoa(num(out, api.FieldChainLength))},
			)
		},
	}
}

func tokensCommand(a *App) *cobra.Command {
	var limit int64
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "List recently issued tokens (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.call(cmd.Context(), api.MethodListTokens, map[string]any{api.FieldLimit: limit})
			if err != nil {
				return err
			}
			rows := pterm.TableData{{"ID", "Amount", "One-time", "Status", "Expires", "Issued by", "Description"}}
			for _, t := range list(out, api.FieldTokens) {
				rows = append(rows, []string{
					itoa(num(t, api.FieldID)),
					itoa(num(t, api.FieldAmount)),
					strconv.FormatBool(boolean(t, api.FieldOneTime)),
					str(t, api.FieldStatus),
					unixTime(num(t, api.FieldExpiresAt)),
					str(t, api.FieldIssuedBy),
					str(t, api.FieldDescription),
				})
			}
			return a.renderTable(true, rows)
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 0, "number of tokens, server default when 0")
	return cmd
}

func exportCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Verify the ledger and upload it to object storage (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.call(cmd.Context(), api.MethodExportLedger, nil)
			if err != nil {
				return err
			}
			return a.renderFields(
				[]string{"Location", str(out, api.FieldLocation)},
				[]string{"Blocks", itoa(num(out, api.FieldBlocks))},
				[]string{"Final hash", str(out, api.FieldFinalHash)},
			)
		},
	}
}

func adminTokenCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "admin-token",
		Short: "Print an admin access token minted from the shared secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.adminToken()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, token)
			return err
		},
	}
}

func pingCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.call(cmd.Context(), api.MethodPing, nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, str(out, api.FieldStatus))
			return err
		},
	}
}
