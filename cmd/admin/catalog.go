package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"dog-catalog/internal/client"
	"dog-catalog/internal/core/cache"
)

// catalogCmd 通过 HTTP 读取公开目录；配置了 redis 时复用共享缓存
func (e *env) catalogCmd() *cobra.Command {
	var api, breed string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "read the public catalog through the caching client",
	}
	cmd.PersistentFlags().StringVar(&api, "api", "http://127.0.0.1:8080", "catalog api base url")

	newClient := func() (*client.Client, func(), error) {
		store := cache.Store(cache.NewMemory())
		closeFn := func() {}
		if e.cfg.Redis.Addr != "" {
			rs := cache.NewRedis(e.cfg.Redis.Addr, e.cfg.Redis.Password, e.cfg.Redis.DB)
			rs.TTL = 10 * time.Minute
			store, closeFn = rs, func() { _ = rs.Close() }
		}
		c, err := client.New(api, client.WithCache(cache.New(store, e.log)), client.WithLogger(e.log))
		return c, closeFn, err
	}
	show := func(cmd *cobra.Command, v any, err error) error {
		if err != nil && !client.IsStale(err) {
			return err
		}
		if err != nil {
			e.log.Warn("serving cached catalog: " + err.Error())
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	listings := &cobra.Command{
		Use:   "listings",
		Short: "list dogs, optionally by breed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := newClient()
			if err != nil {
				return err
			}
			defer done()
			v, err := c.Listings(cmd.Context(), breed)
			return show(cmd, v, err)
		},
	}
	listings.Flags().StringVar(&breed, "breed", "all", "breed filter")

	featured := &cobra.Command{
		Use:   "featured",
		Short: "featured dogs still available",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := newClient()
			if err != nil {
				return err
			}
			defer done()
			v, err := c.Featured(cmd.Context())
			return show(cmd, v, err)
		},
	}

	breeds := &cobra.Command{
		Use:   "breeds",
		Short: "distinct breeds in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := newClient()
			if err != nil {
				return err
			}
			defer done()
			v, err := c.Breeds(cmd.Context())
			return show(cmd, v, err)
		},
	}

	cmd.AddCommand(listings, featured, breeds)
	return cmd
}
