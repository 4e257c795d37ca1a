// FILE: logtrace/src/cmd/cert-gen/main.go
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"flag"
	"fmt"
	"math/big"
	"net"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		genCA    = flag.Bool("ca", false, "Generate CA certificate")
		genCert  = flag.Bool("server", false, "Generate server certificate signed by CA")
		selfSign = flag.Bool("self-signed", false, "Generate self-signed certificate")

		commonName = flag.String("cn", "", "Common name (required)")
		org        = flag.String("org", "LogTrace", "Organization")
		country    = flag.String("country", "US", "Country code")
		validDays  = flag.Int("days", 365, "Validity period in days")
		keySize    = flag.Int("bits", 2048, "RSA key size")

		hosts     = flag.String("hosts", "", "Comma-separated hostnames/IPs for SANs")
		caFile    = flag.String("ca-cert", "", "CA certificate file (for signing)")
		caKeyFile = flag.String("ca-key", "", "CA key file (for signing)")

		certOut = flag.String("cert-out", "", "Output certificate file")
		keyOut  = flag.String("key-out", "", "Output key file")
	)

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Generate TLS certificates for the LogTrace query server")
		fmt.Fprintln(os.Stderr, "\nUsage:", os.Args[0], "[options]")
		fmt.Fprintln(os.Stderr, "\nExamples:")
		fmt.Fprintln(os.Stderr, "  # Self-signed certificate for local use")
		fmt.Fprintln(os.Stderr, "  cert-gen --self-signed --cn localhost --hosts localhost,127.0.0.1")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  # Private CA, then a server certificate signed by it")
		fmt.Fprintln(os.Stderr, "  cert-gen --ca --cn \"LogTrace CA\" --cert-out ca.crt --key-out ca.key")
		fmt.Fprintln(os.Stderr, "  cert-gen --server --cn trace.example.com --hosts trace.example.com \\")
		fmt.Fprintln(os.Stderr, "           --ca-cert ca.crt --ca-key ca.key")
		fmt.Fprintln(os.Stderr, "\nThe resulting files go into logtrace.toml under [server.tls]:")
		fmt.Fprintln(os.Stderr, "  cert_file = \"server.crt\"")
		fmt.Fprintln(os.Stderr, "  key_file  = \"server.key\"")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *commonName == "" {
		flag.Usage()
		fatalf("common name (--cn) is required")
	}

	var err error
	switch {
	case *genCA:
		err = generateCA(*commonName, *org, *country, *validDays, *keySize, *certOut, *keyOut)
	case *selfSign:
		err = generateSelfSigned(*commonName, *org, *country, *hosts, *validDays, *keySize, *certOut, *keyOut)
	case *genCert:
		err = generateServerCert(*commonName, *org, *country, *hosts, *caFile, *caKeyFile, *validDays, *keySize, *certOut, *keyOut)
	default:
		flag.Usage()
		fatalf("specify certificate type: --ca, --self-signed, or --server")
	}

	if err != nil {
		fatalf("%v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func generateCA(cn, org, country string, days, bits int, certFile, keyFile string) error {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumber, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{org},
			Country:      []string{country},
			CommonName:   cn,
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(0, 0, days),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	if certFile == "" {
		certFile = "ca.crt"
	}
	if keyFile == "" {
		keyFile = "ca.key"
	}

	if err := saveCert(certFile, certDER); err != nil {
		return err
	}
	if err := saveKey(keyFile, priv); err != nil {
		return err
	}

	fmt.Printf("CA certificate generated:\n")
	fmt.Printf("  Certificate: %s\n", certFile)
	fmt.Printf("  Private key: %s (mode 0600)\n", keyFile)
	fmt.Printf("  Valid for:   %d days\n", days)
	fmt.Printf("  Common name: %s\n", cn)

	return nil
}

func generateSelfSigned(cn, org, country, hosts string, days, bits int, certFile, keyFile string) error {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	dnsNames, ipAddrs := parseHosts(hosts)
	serialNumber, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   cn,
			Organization: []string{org},
			Country:      []string{country},
		},
		NotBefore: time.Now(),
		NotAfter:  time.Now().AddDate(0, 0, days),

		KeyUsage:    x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},

		DNSNames:    dnsNames,
		IPAddresses: ipAddrs,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	if certFile == "" {
		certFile = "server.crt"
	}
	if keyFile == "" {
		keyFile = "server.key"
	}

	if err := saveCert(certFile, certDER); err != nil {
		return err
	}
	if err := saveKey(keyFile, priv); err != nil {
		return err
	}

	fmt.Printf("Self-signed certificate generated:\n")
	fmt.Printf("  Certificate: %s\n", certFile)
	fmt.Printf("  Private key: %s (mode 0600)\n", keyFile)
	fmt.Printf("  Valid for:   %d days\n", days)
	fmt.Printf("  Common name: %s\n", cn)
	if hosts != "" {
		fmt.Printf("  Hosts (SANs): %s\n", hosts)
	}

	return nil
}

func generateServerCert(cn, org, country, hosts, caFile, caKeyFile string, days, bits int, certFile, keyFile string) error {
	caCert, caKey, err := loadCA(caFile, caKeyFile)
	if err != nil {
		return err
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("failed to generate server private key: %w", err)
	}

	dnsNames, ipAddrs := parseHosts(hosts)
	serialNumber, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	certExpiry := time.Now().AddDate(0, 0, days)
	if certExpiry.After(caCert.NotAfter) {
		return fmt.Errorf("certificate validity period (%d days) exceeds CA expiry (%s)", days, caCert.NotAfter.Format(time.RFC3339))
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   cn,
			Organization: []string{org},
			Country:      []string{country},
		},
		NotBefore:   time.Now(),
		NotAfter:    certExpiry,
		KeyUsage:    x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    dnsNames,
		IPAddresses: ipAddrs,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, caCert, &priv.PublicKey, caKey)
	if err != nil {
		return fmt.Errorf("failed to sign server certificate: %w", err)
	}

	if certFile == "" {
		certFile = "server.crt"
	}
	if keyFile == "" {
		keyFile = "server.key"
	}

	if err := saveCert(certFile, certDER); err != nil {
		return err
	}
	if err := saveKey(keyFile, priv); err != nil {
		return err
	}

	fmt.Printf("Server certificate generated:\n")
	fmt.Printf("  Certificate: %s\n", certFile)
	fmt.Printf("  Private key: %s (mode 0600)\n", keyFile)
	fmt.Printf("  Signed by:   CN=%s\n", caCert.Subject.CommonName)
	if hosts != "" {
		fmt.Printf("  Hosts (SANs): %s\n", hosts)
	}
	return nil
}

func parseHosts(hostList string) ([]string, []net.IP) {
	var dnsNames []string
	var ipAddrs []net.IP

	if hostList == "" {
		return dnsNames, ipAddrs
	}

	for _, h := range strings.Split(hostList, ",") {
		h = strings.TrimSpace(h)
		if ip := net.ParseIP(h); ip != nil {
			ipAddrs = append(ipAddrs, ip)
		} else if h != "" {
			dnsNames = append(dnsNames, h)
		}
	}

	return dnsNames, ipAddrs
}

func loadCA(certFile, keyFile string) (*x509.Certificate, *rsa.PrivateKey, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return nil, nil, fmt.Errorf("invalid CA certificate format")
	}

	caCert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CA key: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, fmt.Errorf("invalid CA key format")
	}

	var caKey *rsa.PrivateKey
	switch keyBlock.Type {
	case "RSA PRIVATE KEY":
		caKey, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse CA private key: %w", err)
		}
	case "PRIVATE KEY":
		parsedKey, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse CA key: %w", err)
		}
		var ok bool
		caKey, ok = parsedKey.(*rsa.PrivateKey)
		if !ok {
			return nil, nil, fmt.Errorf("CA key is not RSA")
		}
	default:
		return nil, nil, fmt.Errorf("unsupported CA key type: %s", keyBlock.Type)
	}

	if !caCert.IsCA {
		return nil, nil, fmt.Errorf("certificate is not a CA certificate")
	}

	return caCert, caKey, nil
}

func saveCert(filename string, certDER []byte) error {
	certFile, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create certificate file: %w", err)
	}
	defer certFile.Close()

	if err := pem.Encode(certFile, &pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	}); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	return os.Chmod(filename, 0644)
}

func saveKey(filename string, key *rsa.PrivateKey) error {
	keyFile, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer keyFile.Close()

	privKeyDER := x509.MarshalPKCS1PrivateKey(key)
	if err := pem.Encode(keyFile, &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: privKeyDER,
	}); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	// Restricted permissions for the private key
	return os.Chmod(filename, 0600)
}
