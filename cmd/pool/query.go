package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swapPool/internal/state"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	current, err := sess.state.Pool()
	if err != nil {
		return err
	}

	amount0In, err := amountFlag(cmd, "amount0-in")
	if err != nil {
		return err
	}
	amount1In, err := amountFlag(cmd, "amount1-in")
	if err != nil {
		return err
	}
	amount0Out, err := amountFlag(cmd, "amount0-out")
	if err != nil {
		return err
	}
	amount1Out, err := amountFlag(cmd, "amount1-out")
	if err != nil {
		return err
	}
	elapsed, _ := cmd.Flags().GetUint64("elapsed")

	out := map[string]string{}

	switch {
	case !amount0In.IsZero():
		quoted, err := current.CalculateSwapAmount1(amount0In)
		if err != nil {
			return err
		}
		out["amount_1_out"] = quoted.String()
	case !amount1In.IsZero():
		quoted, err := current.CalculateSwapAmount0(amount1In)
		if err != nil {
			return err
		}
		out["amount_0_out"] = quoted.String()
	case !amount0Out.IsZero() || !amount1Out.IsZero():
		quoted0, quoted1, err := current.CalculateAdjustedAmountPair(amount0Out, amount1Out)
		if err != nil {
			return err
		}
		out["amount_0"] = quoted0.String()
		out["amount_1"] = quoted1.String()
	case elapsed == 0:
		return fmt.Errorf("nothing to quote: pass an input, an output, or --elapsed")
	}

	if elapsed > 0 {
		price0, price1 := current.CalculatePriceCumulativePair(elapsed)
		out["price_0_cumulative"] = price0.String()
		out["price_1_cumulative"] = price1.String()
	}

	return printJSON(out)
}

func runShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	current, err := sess.state.Pool()
	if err != nil {
		return err
	}

	accountRaw, _ := cmd.Flags().GetString("account")
	if accountRaw == "" {
		return printJSON(current)
	}

	account, err := parseAddress(accountRaw, "account")
	if err != nil {
		return err
	}
	liquidity, err := sess.state.Liquidity(account)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"pool":      current,
		"account":   account.Hex(),
		"liquidity": liquidity.String(),
	})
}

func runFundCreate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	tokenRaw, _ := cmd.Flags().GetString("token")
	token, err := parseOptionalAddress(tokenRaw, "token")
	if err != nil {
		return err
	}
	accountRaw, _ := cmd.Flags().GetString("account")
	account, err := parseAddress(accountRaw, "account")
	if err != nil {
		return err
	}
	amount0, err := amountFlag(cmd, "amount0")
	if err != nil {
		return err
	}
	amount1, err := amountFlag(cmd, "amount1")
	if err != nil {
		return err
	}
	ts, _ := cmd.Flags().GetUint64("timestamp")

	id := sess.state.CreateFundRequest(state.FundRequest{
		Token:     token,
		Amount0:   amount0,
		Amount1:   amount1,
		Account:   account,
		Status:    state.FundPending,
		CreatedAt: timestampOrNow(ts),
	})

	if err := sess.save(ctx); err != nil {
		return err
	}
	return printJSON(map[string]uint64{"id": id})
}

func runFundUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	id, _ := cmd.Flags().GetUint64("id")
	statusRaw, _ := cmd.Flags().GetString("status")
	reason, _ := cmd.Flags().GetString("error")

	if err := sess.state.UpdateFundRequest(id, state.FundStatus(statusRaw), reason); err != nil {
		return err
	}
	if err := sess.save(ctx); err != nil {
		return err
	}

	request, err := sess.state.FundRequest(id)
	if err != nil {
		return err
	}
	return printJSON(request)
}

func runFundShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	id, _ := cmd.Flags().GetUint64("id")
	request, err := sess.state.FundRequest(id)
	if err != nil {
		return err
	}
	return printJSON(request)
}

func runFundList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	statusRaw, _ := cmd.Flags().GetString("status")
	requests := sess.state.FundRequests()
	if statusRaw != "" {
		status := state.FundStatus(statusRaw)
		if !status.Valid() {
			return fmt.Errorf("--status: unknown status %q", statusRaw)
		}
		for id, request := range requests {
			if request.Status != status {
				delete(requests, id)
			}
		}
	}
	return printJSON(requests)
}
