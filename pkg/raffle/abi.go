// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raffle

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABIJSON describes the raffle interface for front ends that talk to a
// deployed raffle contract.
const ABIJSON = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"vrfCoordinatorV2","type":"address","internalType":"address"},
		{"name":"gasLane","type":"bytes32","internalType":"bytes32"},
		{"name":"subscriptionId","type":"uint256","internalType":"uint256"},
		{"name":"callbackGasLimit","type":"uint32","internalType":"uint32"},
		{"name":"interval","type":"uint256","internalType":"uint256"}
	]},
	{"type":"error","name":"OnlyCoordinatorCanFulfill","inputs":[
		{"name":"have","type":"address","internalType":"address"},
		{"name":"want","type":"address","internalType":"address"}
	]},
	{"type":"error","name":"Raffle__NotEnoughETHEntered","inputs":[]},
	{"type":"error","name":"Raffle__NotOpen","inputs":[]},
	{"type":"error","name":"Raffle__TransferFailed","inputs":[]},
	{"type":"error","name":"Raffle__UpkeepNotNeeded","inputs":[
		{"name":"currentBalance","type":"uint256","internalType":"uint256"},
		{"name":"numPlayers","type":"uint256","internalType":"uint256"},
		{"name":"raffleState","type":"uint256","internalType":"uint256"}
	]},
	{"type":"event","name":"RaffleEnter","anonymous":false,"inputs":[
		{"name":"player","type":"address","internalType":"address","indexed":true}
	]},
	{"type":"event","name":"RequestedRaffleWinner","anonymous":false,"inputs":[
		{"name":"requestId","type":"uint256","internalType":"uint256","indexed":true}
	]},
	{"type":"event","name":"WinnerPicked","anonymous":false,"inputs":[
		{"name":"winner","type":"address","internalType":"address","indexed":true}
	]},
	{"type":"function","name":"checkUpkeep","stateMutability":"view","inputs":[
		{"name":"","type":"bytes","internalType":"bytes"}
	],"outputs":[
		{"name":"upkeepNeeded","type":"bool","internalType":"bool"},
		{"name":"","type":"bytes","internalType":"bytes"}
	]},
	{"type":"function","name":"enterRaffle","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"getEntranceFee","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256","internalType":"uint256"}
	]},
	{"type":"function","name":"getInterval","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256","internalType":"uint256"}
	]},
	{"type":"function","name":"getLatestTimeStamp","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256","internalType":"uint256"}
	]},
	{"type":"function","name":"getNumWords","stateMutability":"pure","inputs":[],"outputs":[
		{"name":"","type":"uint256","internalType":"uint256"}
	]},
	{"type":"function","name":"getNumberOfPlayers","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256","internalType":"uint256"}
	]},
	{"type":"function","name":"getPlayer","stateMutability":"view","inputs":[
		{"name":"index","type":"uint256","internalType":"uint256"}
	],"outputs":[
		{"name":"","type":"address","internalType":"address"}
	]},
	{"type":"function","name":"getRaffleState","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint8","internalType":"enum Raffle.RaffleState"}
	]},
	{"type":"function","name":"getRecentWinner","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"address","internalType":"address"}
	]},
	{"type":"function","name":"getRequestConfirmations","stateMutability":"pure","inputs":[],"outputs":[
		{"name":"","type":"uint256","internalType":"uint256"}
	]},
	{"type":"function","name":"getSubscriptionId","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256","internalType":"uint256"}
	]},
	{"type":"function","name":"performUpkeep","stateMutability":"nonpayable","inputs":[
		{"name":"","type":"bytes","internalType":"bytes"}
	],"outputs":[]},
	{"type":"function","name":"rawFulfillRandomWords","stateMutability":"nonpayable","inputs":[
		{"name":"requestId","type":"uint256","internalType":"uint256"},
		{"name":"randomWords","type":"uint256[]","internalType":"uint256[]"}
	],"outputs":[]}
]`

// ParseABI parses ABIJSON.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(ABIJSON))
}
