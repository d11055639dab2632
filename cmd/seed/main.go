// Command seed loads the starter gaming catalog. Products that already
// exist by name are skipped, so the command can be run repeatedly.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"masivo-tech/config"
	"masivo-tech/logger"
	"masivo-tech/models"
	"masivo-tech/store"

	"go.uber.org/zap"
)

const seedStock = 15

//go:embed catalog.json
var catalogJSON []byte

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Server.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	catalog, err := loadCatalog(catalogJSON)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ExternalTimeout)
	defer cancel()
	client, err := store.Connect(ctx, cfg.MongoDB.URI)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repos := store.NewMongo(client.Database(cfg.MongoDB.Database))
	created, err := seed(logger.WithContext(ctx, log), repos.Products, catalog)
	if err != nil {
		return err
	}
	log.Info("catalog seeded", zap.Int("created", created), zap.Int("total", len(catalog)))
	return nil
}

func loadCatalog(data []byte) ([]models.Product, error) {
	var catalog []models.Product
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	for i := range catalog {
		catalog[i].Stock = seedStock
		catalog[i].Available = true
	}
	return catalog, nil
}

// seed creates every catalog product whose name is not taken yet and
// returns how many were created
func seed(ctx context.Context, products store.ProductRepository, catalog []models.Product) (int, error) {
	log := logger.FromContext(ctx)
	created := 0
	for _, p := range catalog {
		_, err := products.FindByName(ctx, p.Name)
		if err == nil {
			log.Debug("skipping existing product", zap.String("name", p.Name))
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return created, err
		}

		p := p
		if err := products.Create(ctx, &p); err != nil {
			return created, fmt.Errorf("failed to create %q: %w", p.Name, err)
		}
		created++
		log.Info("product created", zap.String("name", p.Name), zap.String("price", p.Price.String()))
	}
	return created, nil
}
