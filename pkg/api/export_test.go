// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

type (
	RaffleStatusResponse    = raffleStatusResponse
	EnterRequest            = enterRequest
	EnterResponse           = enterResponse
	PlayerResponse          = playerResponse
	CheckUpkeepResponse     = checkUpkeepResponse
	PerformUpkeepResponse   = performUpkeepResponse
	UpkeepNotNeededResponse = upkeepNotNeededResponse
	RoundResponse           = roundResponse
	RoundsResponse          = roundsResponse
	BalanceResponse         = balanceResponse
	FulfillRequest          = fulfillRequest
	FulfillResponse         = fulfillResponse
	PendingRequestsResponse = pendingRequestsResponse
	SubscriptionResponse    = subscriptionResponse
	StatusResponse          = statusResponse
)
