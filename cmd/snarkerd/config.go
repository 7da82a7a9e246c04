// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// loadConfig builds a snarker.Config from an optional TOML file, with
// individual CLI flags overriding whatever the file set.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	cli "gopkg.in/urfave/cli.v1"

	"snarker-node/common"
	"snarker-node/snarker"
)

var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

var configFileFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML configuration file",
}

func loadConfig(file string, cfg *snarker.Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig builds the node's Config from defaults, an optional TOML
// file, then CLI flag overrides, in that order of increasing priority
// (cmd/berith/config.go's makeConfigNode order).
func makeConfig(ctx *cli.Context) snarker.Config {
	cfg := snarker.DefaultConfig

	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			fatalf("%v", err)
		}
	}

	if ctx.GlobalIsSet(chainIdFlag.Name) {
		cfg.ChainId = ctx.GlobalString(chainIdFlag.Name)
	}
	if ctx.GlobalIsSet(portFlag.Name) {
		cfg.Port = ctx.GlobalInt(portFlag.Name)
	}
	if ctx.GlobalIsSet(maxPeersFlag.Name) {
		cfg.MaxPeers = ctx.GlobalInt(maxPeersFlag.Name)
	}
	if ctx.GlobalIsSet(workerPathFlag.Name) {
		cfg.WorkerPath = ctx.GlobalString(workerPathFlag.Name)
	} else if env := os.Getenv("MINA_EXE_PATH"); env != "" {
		cfg.WorkerPath = env
	}
	if ctx.GlobalIsSet(autoCommitFlag.Name) {
		cfg.AutoCommit = ctx.GlobalBool(autoCommitFlag.Name)
	}
	if ctx.GlobalIsSet(metricsURLFlag.Name) {
		cfg.MetricsURL = ctx.GlobalString(metricsURLFlag.Name)
	} else if env := os.Getenv("SNARKER_METRICS_URL"); env != "" {
		cfg.MetricsURL = env
	}
	if ctx.GlobalIsSet(publicKeyFlag.Name) {
		pk, ok := common.BytesToPublicKey(decodeHex(ctx.GlobalString(publicKeyFlag.Name)))
		if !ok {
			fatalf("invalid --publickey value")
		}
		cfg.PublicKey = pk
	}

	return cfg
}
