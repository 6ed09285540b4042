// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vaultapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/polystake/vault/api/utils"
	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/vault"
)

// VaultAPI exposes the vault's read surface over REST.
type VaultAPI struct {
	vault *vault.Vault
}

func New(v *vault.Vault) *VaultAPI {
	return &VaultAPI{v}
}

func (a *VaultAPI) handleGetStatus(w http.ResponseWriter, _ *http.Request) error {
	price, err := a.vault.SharePrice()
	if err != nil {
		return err
	}
	staked, err := a.vault.TotalStaked()
	if err != nil {
		return err
	}
	uninvested, err := a.vault.UninvestedAssets()
	if err != nil {
		return err
	}
	assets, err := a.vault.TotalAssets()
	if err != nil {
		return err
	}
	supply, err := a.vault.TotalSupply()
	if err != nil {
		return err
	}
	phi, distPhi, err := a.vault.Fees()
	if err != nil {
		return err
	}
	minDeposit, err := a.vault.MinDeposit()
	if err != nil {
		return err
	}
	paused, err := a.vault.Paused()
	if err != nil {
		return err
	}
	status := Status{
		SharePrice:  convertPrice(price),
		TotalStaked: num(staked),
		Uninvested:  num(uninvested),
		TotalAssets: num(assets),
		TotalSupply: num(supply),
		Phi:         phi,
		DistPhi:     distPhi,
		MinDeposit:  num(minDeposit),
		Paused:      paused,
	}
	if def, err := a.vault.DefaultValidator(); err != nil {
		return err
	} else if !def.IsZero() {
		status.DefaultValidator = &def
	}
	return utils.WriteJSON(w, &status)
}

func (a *VaultAPI) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddress(req, "address")
	if err != nil {
		return err
	}
	shares, err := a.vault.BalanceOf(*addr)
	if err != nil {
		return err
	}
	price, err := a.vault.SharePrice()
	if err != nil {
		return err
	}
	maxWithdraw, err := a.vault.MaxWithdraw(*addr)
	if err != nil {
		return err
	}
	maxRedeem, err := a.vault.MaxRedeem(*addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Account{
		Shares:      num(shares),
		AssetValue:  num(price.AmountFromShares(shares)),
		MaxWithdraw: num(maxWithdraw),
		MaxRedeem:   num(maxRedeem),
	})
}

func (a *VaultAPI) handleGetValidators(w http.ResponseWriter, _ *http.Request) error {
	validators, err := a.vault.Validators()
	if err != nil {
		return err
	}
	converted := make([]*Validator, len(validators))
	for i, v := range validators {
		converted[i] = convertValidator(v)
	}
	return utils.WriteJSON(w, converted)
}

func (a *VaultAPI) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddress(req, "address")
	if err != nil {
		return err
	}
	validator, err := a.vault.Validator(*addr)
	if err != nil {
		return utils.NotFound(err)
	}
	return utils.WriteJSON(w, convertValidator(validator))
}

func (a *VaultAPI) handleGetWithdrawal(w http.ResponseWriter, req *http.Request) error {
	validator, err := parseAddress(req, "validator")
	if err != nil {
		return err
	}
	nonce, err := strconv.ParseUint(mux.Vars(req)["nonce"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "nonce"))
	}
	user, amount, exists, err := a.vault.Withdrawal(*validator, nonce)
	if err != nil {
		return err
	}
	if !exists {
		return utils.NotFound(errors.New("no pending withdrawal at nonce"))
	}
	return utils.WriteJSON(w, &Withdrawal{User: user, Amount: num(amount)})
}

func (a *VaultAPI) handleGetLastNonce(w http.ResponseWriter, req *http.Request) error {
	validator, err := parseAddress(req, "validator")
	if err != nil {
		return err
	}
	nonce, err := a.vault.LastUnbondNonce(*validator)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"lastNonce": nonce})
}

func (a *VaultAPI) handleGetAllocations(w http.ResponseWriter, req *http.Request) error {
	distributor, err := parseAddress(req, "distributor")
	if err != nil {
		return err
	}
	strict, err := parseStrict(req)
	if err != nil {
		return err
	}
	recipients, err := a.vault.AllocationRecipients(*distributor, strict)
	if err != nil {
		return err
	}
	allocations := make([]*Allocation, 0, len(recipients))
	for _, recipient := range recipients {
		amount, exists, err := a.vault.Allocation(*distributor, recipient, strict)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		allocations = append(allocations, &Allocation{
			Recipient: recipient,
			Amount:    num(amount),
			Strict:    strict,
		})
	}
	return utils.WriteJSON(w, allocations)
}

func (a *VaultAPI) handleGetAllocation(w http.ResponseWriter, req *http.Request) error {
	distributor, err := parseAddress(req, "distributor")
	if err != nil {
		return err
	}
	recipient, err := parseAddress(req, "recipient")
	if err != nil {
		return err
	}
	strict, err := parseStrict(req)
	if err != nil {
		return err
	}
	amount, exists, err := a.vault.Allocation(*distributor, *recipient, strict)
	if err != nil {
		return err
	}
	if !exists {
		return utils.NotFound(errors.New("no allocation to recipient"))
	}
	return utils.WriteJSON(w, &Allocation{
		Recipient: *recipient,
		Amount:    num(amount),
		Strict:    strict,
	})
}

func parseAddress(req *http.Request, name string) (*poly.Address, error) {
	addr, err := poly.ParseAddress(mux.Vars(req)[name])
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, name))
	}
	return addr, nil
}

func parseStrict(req *http.Request) (bool, error) {
	raw := req.URL.Query().Get("strict")
	if raw == "" {
		return false, nil
	}
	strict, err := strconv.ParseBool(raw)
	if err != nil {
		return false, utils.BadRequest(errors.WithMessage(err, "strict"))
	}
	return strict, nil
}

func (a *VaultAPI) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/status").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetStatus))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetAccount))
	sub.Path("/validators").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetValidators))
	sub.Path("/validators/{address}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetValidator))
	sub.Path("/withdrawals/{validator}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetLastNonce))
	sub.Path("/withdrawals/{validator}/{nonce}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetWithdrawal))
	sub.Path("/allocations/{distributor}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetAllocations))
	sub.Path("/allocations/{distributor}/{recipient}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetAllocation))
}
