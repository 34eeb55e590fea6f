package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore"
	"github.com/LerianStudio/lib-payscore/payscore/envelope"
	"github.com/LerianStudio/lib-payscore/payscore/signature"
	"github.com/LerianStudio/lib-payscore/payscore/signstring"
	"github.com/spf13/cobra"
)

func newSerialCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serial <certificate.pem>",
		Short: "Print the serial number of a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			cert, err := signature.ParseCertificate(data)
			if err != nil {
				return err
			}

			info, err := signature.Inspect(cert)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.SerialNumber)

			return err
		},
	}
}

type signOutput struct {
	Mode       string `json:"mode"`
	Timestamp  string `json:"timestamp"`
	Nonce      string `json:"nonce"`
	SignString string `json:"sign_string"`
	Signature  string `json:"signature"`
}

func newSignCommand() *cobra.Command {
	var (
		method, path, body, meta string
		timestamp, nonce         string
		keyFile, passphrase      string
		hmacSecret               string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Build and sign a request sign-string",
		Long: `Build the request sign-string for method, path and body and sign it with
an RSA private key (--key) or an API key (--hmac-secret). Body and meta accept
@file to read from a file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (keyFile == "") == (hmacSecret == "") {
				return errors.New("exactly one of --key and --hmac-secret is required")
			}

			if timestamp == "" {
				timestamp = payscore.Timestamp(time.Now())
			} else if _, err := strconv.ParseInt(timestamp, 10, 64); err != nil {
				return fmt.Errorf("timestamp %q is not decimal seconds", timestamp)
			}

			if nonce == "" {
				nonce = payscore.NewNonce()
			}

			req := signstring.Request{Method: method, Path: path, Timestamp: timestamp, Nonce: nonce}

			if body != "" {
				data, err := readArg(body)
				if err != nil {
					return err
				}

				req.Body = string(data)
			}

			if meta != "" {
				data, err := readArg(meta)
				if err != nil {
					return err
				}

				req.Meta = string(data)
			}

			s, err := signstring.BuildRequest(req)
			if err != nil {
				return err
			}

			signer, err := buildSigner(keyFile, passphrase, hmacSecret)
			if err != nil {
				return err
			}

			sig, err := signer.Sign(s)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), signOutput{
				Mode:       sig.Mode.String(),
				Timestamp:  timestamp,
				Nonce:      nonce,
				SignString: s,
				Signature:  sig.Value,
			})
		},
	}

	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method (GET, POST or PUT)")
	cmd.Flags().StringVar(&path, "path", "", "URL path including the query string")
	cmd.Flags().StringVar(&body, "body", "", "request body, or @file")
	cmd.Flags().StringVar(&meta, "meta", "", "upload meta replacing the body line, or @file")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "unix seconds (default now)")
	cmd.Flags().StringVar(&nonce, "nonce", "", "nonce (default random)")
	cmd.Flags().StringVar(&keyFile, "key", "", "PEM private key file")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase of an encrypted private key")
	cmd.Flags().StringVar(&hmacSecret, "hmac-secret", "", "API key for HMAC-SHA256 signing")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func buildSigner(keyFile, passphrase, hmacSecret string) (signature.Signer, error) {
	if hmacSecret != "" {
		signer, err := signature.NewHMACSigner(hmacSecret)
		if err != nil {
			return nil, err
		}

		return signer, nil
	}

	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}

	key, err := signature.ParsePrivateKey(data, []byte(passphrase))
	if err != nil {
		return nil, err
	}

	signer, err := signature.NewRSASignerFromKey(key)
	if err != nil {
		return nil, err
	}

	return signer, nil
}

func newDecryptCommand() *cobra.Command {
	var apiV3Key, nonce, associatedData, ciphertext string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt an AEAD_AES_256_GCM notification resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiV3Key == "" {
				apiV3Key = os.Getenv("PAYSCORE_APIV3_KEY")
			}

			ct, err := readArg(ciphertext)
			if err != nil {
				return err
			}

			plaintext, err := envelope.DecryptResource([]byte(apiV3Key), nonce, string(ct), associatedData)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(append(plaintext, '\n'))

			return err
		},
	}

	cmd.Flags().StringVar(&apiV3Key, "apiv3-key", "", "APIv3 key (default $PAYSCORE_APIV3_KEY)")
	cmd.Flags().StringVar(&nonce, "nonce", "", "resource nonce")
	cmd.Flags().StringVar(&associatedData, "associated-data", "", "resource associated_data")
	cmd.Flags().StringVar(&ciphertext, "ciphertext", "", "base64 ciphertext, or @file")
	_ = cmd.MarkFlagRequired("nonce")
	_ = cmd.MarkFlagRequired("ciphertext")

	return cmd
}

func newEncryptFieldCommand() *cobra.Command {
	var certFile string

	cmd := &cobra.Command{
		Use:   "encrypt-field <plaintext>",
		Short: "RSA-OAEP encrypt a sensitive field with a platform certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(certFile)
			if err != nil {
				return err
			}

			out, err := envelope.EncryptOAEP([]byte(args[0]), data, true)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))

			return err
		},
	}

	cmd.Flags().StringVar(&certFile, "cert", "", "platform certificate or public key PEM")
	_ = cmd.MarkFlagRequired("cert")

	return cmd
}
