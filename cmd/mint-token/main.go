// Mints an API bearer token for a client, for use with API_AUTH_REQUIRED
// deployments.
//
// Usage:
//
//	API_SECRET=... go run ./cmd/mint-token -id 1 -role admin
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shieldnetlabs/shieldnet_backend/utils"
)

func main() {
	id := flag.Int("id", 1, "client id")
	role := flag.String("role", "member", "client role")
	flag.Parse()

	token, err := utils.JwtGenerate(*id, *role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mint-token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
