// Command herbcc runs the herb batch contract as Fabric chaincode. It is
// installed on a peer on its own; the HTTP service keeps its own ledger.
package main

import (
	"log"

	"herbtrace/chaincode"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func main() {
	cc, err := contractapi.NewChaincode(&chaincode.HerbContract{})
	if err != nil {
		log.Fatalf("create herb chaincode: %v", err)
	}
	cc.Info.Title = "herbtrace"
	cc.Info.Version = "1.0.0"

	if err := cc.Start(); err != nil {
		log.Fatalf("start herb chaincode: %v", err)
	}
}
