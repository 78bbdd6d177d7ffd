package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	transportgrpc "github.com/ndk123-web/backend-structure/internal/transport/grpc"
	grpcinterceptors "github.com/ndk123-web/backend-structure/internal/transport/grpc/interceptors"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC server address")
	refresh := flag.String("refresh", "", "optional refresh token sent for proactive rotation")
	flag.Parse()

	access := os.Getenv("VT_ACCESS_TOKEN")
	if access == "" {
		log.Fatal("VT_ACCESS_TOKEN is required")
	}

	conn, err := grpc.NewClient(*addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pairs := []string{"authorization", "Bearer " + access}
	if *refresh != "" {
		pairs = append(pairs, grpcinterceptors.RefreshTokenKey, *refresh)
	}
	ctx = metadata.NewOutgoingContext(ctx, metadata.Pairs(pairs...))

	var header metadata.MD
	resp, err := transportgrpc.WhoAmI(ctx, conn, grpc.Header(&header))
	if err != nil {
		log.Fatalf("WhoAmI failed: %v", err)
	}

	out, err := json.MarshalIndent(resp.AsMap(), "", "  ")
	if err != nil {
		log.Fatalf("encode response: %v", err)
	}
	fmt.Println(string(out))

	if rotated := header.Get(grpcinterceptors.AccessTokenHeaderKey); len(rotated) > 0 {
		fmt.Fprintln(os.Stderr, "token pair rotated; new tokens returned in response headers")
	}
}
