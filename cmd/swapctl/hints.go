package main

import (
	"errors"

	"github.com/rovshanmuradov/hybrid-swap/internal/escrow"
)

// hints проверяются по порядку: вложенная причина точнее внешней обёртки.
var hints = []struct {
	target error
	text   string
}{
	{escrow.ErrNotOwned, "the asset is not held by the expected owner; check the asset address and the signing wallet"},
	{escrow.ErrWrongCollection, "the asset does not belong to the market collection"},
	{escrow.ErrConfigMismatch, "the on-chain escrow differs from the market profile; fix the profile, the escrow is never rewritten"},
	{escrow.ErrAuthorityMismatch, "only the market authority can create the escrow; run setup with the authority keypair"},
	{escrow.ErrInsufficientBalance, "not enough tokens; run balance or overview to see the current amounts"},
	{escrow.ErrTransactionRejected, "the transaction was rejected; rerun with --debug for the program logs"},
	{escrow.ErrEscrowUnavailable, "the escrow could not be read or set up; check the RPC nodes and run validate"},
}

// errorHint возвращает подсказку по ошибке обмена или "" для прочих ошибок.
func errorHint(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.target) {
			return h.text
		}
	}
	return ""
}
