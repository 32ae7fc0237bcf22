// tokengen mints signed bearer tokens for local development and tests,
// standing in for the external credential issuer.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
)

func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	userID := flag.String("user", "", "user id to embed in the token")
	username := flag.String("name", "", "display name (defaults to the placeholder name)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: tokengen -secret <secret> -user <id> [-name <display name>] [-ttl 1h]")
		os.Exit(2)
	}
	if !domain.ValidID(*userID) {
		fmt.Fprintf(os.Stderr, "invalid user id: %q\n", *userID)
		os.Exit(2)
	}

	displayName := *username
	if displayName == "" {
		displayName = domain.PlaceholderName(*userID)
	}

	token, err := auth.GenerateToken(*secret, *userID, displayName, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token generation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
