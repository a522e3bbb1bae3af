package convex

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Counterparty is the attribution tag for events classified by this module.
const Counterparty = "convex"

var (
	// Booster is the main Convex deposit contract.
	Booster = common.HexToAddress("0xF403C135812408BFbE8713b5A23a04b3D48AAE31")
	// CvxLocker and CvxLockerV2 lock CVX for vote weight.
	CvxLocker   = common.HexToAddress("0xD18140b4B819b895A3dba5442F959fA44994AF50")
	CvxLockerV2 = common.HexToAddress("0x72a19342e8F1838460eBFCCEf09F6585e32db86E")
	// CvxRewards and CvxCrvRewards pay out staking rewards.
	CvxRewards    = common.HexToAddress("0xCF50b810E57Ac33B91dCF525C6ddd9881B139332")
	CvxCrvRewards = common.HexToAddress("0x3Fe65692bfCD0e6CF84cB1E7d24108E434A7587e")
	// SteCrvRewards is the stETH/ETH base reward pool.
	SteCrvRewards = common.HexToAddress("0x0A760466E1B4621579a82a39CB56Dda2F4E70f03")
)

// Pools names the reward pool contracts whose logs this module decodes.
// Presence here only changes the generated note text, never the
// classification outcome.
var Pools = map[common.Address]string{
	CvxCrvRewards: "cvxCRV",
	CvxRewards:    "CVX",
	SteCrvRewards: "steCRV",
}

// VirtualRewards are the virtual balance reward pool contracts that pay
// out extra incentives on top of a base pool. They emit the same
// RewardPaid logs as the base pools but never appear in the name table.
// Representative set; new pools are appended as they are sighted.
var VirtualRewards = []common.Address{
	common.HexToAddress("0x7091dbb7fcbA54569eF1387Ac89Eb2a5C9F6d2EA"),
	common.HexToAddress("0x81fCe3E10D12Da6c7266a1A169c4C96813435263"),
	common.HexToAddress("0x008aEa5036b819B4FEAEd10b2190FBb3954981E8"),
	common.HexToAddress("0x55d59b791f06dc519B176791c4E037E8Cf2f6361"),
	common.HexToAddress("0x94C259DC4C6dF248B0b5D23C055CB7574A587d67"),
	common.HexToAddress("0xcDEC6714eB482f28f4889A0c122868450CDBF0b0"),
}

// withdrawalTopics are the signatures of pool withdrawal events.
var withdrawalTopics = map[common.Hash]struct{}{
	crypto.Keccak256Hash([]byte("Withdrawn(address,uint256)")):      {},
	crypto.Keccak256Hash([]byte("Withdrawn(address,uint256,bool)")): {},
}

// rewardTopics are the signatures of reward payout events.
var rewardTopics = map[common.Hash]struct{}{
	crypto.Keccak256Hash([]byte("RewardPaid(address,uint256)")): {},
}

// AbraFarms are the abracadabra farm contracts whose reward payouts show
// up only as a plain token transfer at the end of the transaction.
var AbraFarms = []common.Address{
	common.HexToAddress("0xF43480afE9863da4AcBD4419A47D9Cc7d25A647F"),
	common.HexToAddress("0xB65eDE134521F0EFD4E943c835F450137dC6E83e"),
	common.HexToAddress("0x3Ba207c25A278524e1cC7FaAea950753049072A4"),
}

// abraTransferSenders keys AbraFarms by the transfer log's indexed sender
// topic.
var abraTransferSenders = buildAbraTransferSenders()

func buildAbraTransferSenders() map[common.Hash]struct{} {
	senders := make(map[common.Hash]struct{}, len(AbraFarms))
	for _, farm := range AbraFarms {
		senders[common.BytesToHash(farm.Bytes())] = struct{}{}
	}
	return senders
}
