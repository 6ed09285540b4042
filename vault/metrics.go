// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"github.com/polystake/vault/metrics"
)

var (
	metricOperations   = metrics.LazyLoadCounterVec("vault_operation_count", []string{"op"})
	metricSweptYield   = metrics.LazyLoadCounter("vault_swept_yield_units")
	metricRestakeSkips = metrics.LazyLoadCounter("vault_restake_skipped_count")
	metricTotalStaked  = metrics.LazyLoadGauge("vault_total_staked_units")
)

// meterTotalStaked publishes the staked principal gauge in whole units.
func (v *Vault) meterTotalStaked() {
	staked, err := v.totalStaked.Get()
	if err != nil {
		return
	}
	metricTotalStaked().Set(weiToUnits(staked))
}
