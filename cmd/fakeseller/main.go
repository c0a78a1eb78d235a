// Command fakeseller runs a local stand-in for the seller API, seeded with
// generated players and offers, so the dashboard can be developed offline.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/sellertest"
)

const (
	TotalPlayers   = 200
	InitialBalance = 250 // USD
	FirstPublicID  = 100000
)

func main() {
	addr := os.Getenv("FAKE_SELLER_ADDR")
	if addr == "" {
		addr = "127.0.0.1:9090"
	}

	f := sellertest.Start(addr)
	defer f.Close()
	if tok := os.Getenv("SELLER_TOKEN"); tok != "" {
		f.Token = tok
	}

	log.Println("--- Seeding fake seller ---")
	f.SetBalance(decimal.NewFromInt(InitialBalance))
	players := seedPlayers(TotalPlayers)
	f.AddPlayers(players...)
	for i, p := range players {
		f.SetPublicID(strconv.Itoa(FirstPublicID+i), p)
	}
	f.SetOffers(seedOffers()...)
	seedCatalog(f)
	log.Printf("Seeded %d players, public ids %d..%d", len(players), FirstPublicID, FirstPublicID+len(players)-1)

	log.Printf("Fake seller API on %s (token %q, otp %q)", f.URL, f.Token, f.OTP)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Println("Shutting down")
}

func seedPlayers(n int) []domain.Player {
	names := []string{"ahmed", "sara", "omar", "lina", "khaled", "noor", "yousef", "rania"}
	players := make([]domain.Player, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, domain.Player{
			ID:       domain.ID(strconv.Itoa(i + 1)),
			Username: fmt.Sprintf("%s_%d", names[i%len(names)], i/len(names)),
			Level:    1 + i%60,
			Country:  "JO",
		})
	}
	return players
}

func seedOffers() []domain.Offer {
	offers := make([]domain.Offer, 0, 4)
	for i, usd := range []int64{5, 10, 25, 50} {
		offers = append(offers, domain.Offer{
			ID:              domain.ID(strconv.Itoa(i + 1)),
			ExternalOfferID: domain.ID(fmt.Sprintf("offer-%d", i+1)),
			Description:     fmt.Sprintf("%d USD token pack", usd),
			SellerPrice:     decimal.NewFromInt(usd),
			Currency:        "USD",
			MaxPerUser:      3,
		})
	}
	return offers
}

func seedCatalog(f *sellertest.Fake) {
	playerID := []domain.DeliveryField{{Key: "player_id", Label: "Player ID", Required: true}}
	f.AddCategory(domain.Category{ID: "1", Name: "Mobile games"},
		domain.CatalogProduct{ID: "1", Name: "PUBG Mobile UC", VariantsCount: 2},
		domain.CatalogProduct{ID: "2", Name: "Free Fire diamonds", VariantsCount: 1},
	)
	f.SetVariants("1",
		domain.Variant{ID: "1", Name: "60 UC", Price: decimal.NewFromFloat(0.99), ProductType: domain.VariantPackage, RequiredData: playerID},
		domain.Variant{ID: "2", Name: "325 UC", Price: decimal.NewFromFloat(4.99), ProductType: domain.VariantPackage, RequiredData: playerID},
	)
	f.SetVariants("2", domain.Variant{
		ID: "3", Name: "Diamonds", Price: decimal.NewFromInt(1), ProductType: domain.VariantAmount,
		BaseAmount:     100,
		UnitPrice:      decimal.NewFromFloat(0.01),
		QtyConstraints: &domain.QtyConstraints{Min: 100, Max: 10000, Step: 100},
		RequiredData:   playerID,
	})
}
