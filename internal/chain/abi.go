package chain

// NotaryAbiJson is the interface of the notary contract deployed on each chain.
// kind is 1 for outbound and 2 for inbound; status is 0 pending, 1 voted, 2 confirmed.
const NotaryAbiJson = `[
  {
    "inputs": [
      {"internalType": "uint8", "name": "kind", "type": "uint8"},
      {"internalType": "int64", "name": "seq", "type": "int64"},
      {"internalType": "bytes", "name": "payload", "type": "bytes"}
    ],
    "name": "vote",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "commInfo",
    "outputs": [
      {"internalType": "int64", "name": "sendAffirmSeq", "type": "int64"},
      {"internalType": "int64", "name": "recvAffirmSeq", "type": "int64"},
      {"internalType": "address[]", "name": "sendNotaries", "type": "address[]"},
      {"internalType": "address[]", "name": "recvNotaries", "type": "address[]"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint8", "name": "kind", "type": "uint8"},
      {"internalType": "int64", "name": "since", "type": "int64"},
      {"internalType": "uint256", "name": "limit", "type": "uint256"}
    ],
    "name": "proposalsSince",
    "outputs": [
      {"internalType": "int64[]", "name": "seqs", "type": "int64[]"},
      {"internalType": "bytes[]", "name": "payloads", "type": "bytes[]"},
      {"internalType": "uint8[]", "name": "status", "type": "uint8[]"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const (
	MethodOfVote           = "vote"
	MethodOfCommInfo       = "commInfo"
	MethodOfProposalsSince = "proposalsSince"
)
